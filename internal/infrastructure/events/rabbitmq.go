package events

import (
	"context"
	"fmt"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

// RawPublisher sends bytes with a routing key.
type RawPublisher interface {
	Publish(ctx context.Context, routingKey, contentType string, body []byte) error
}

// RabbitPublisher routes each event by its name, e.g. subscriber.confirmed.
type RabbitPublisher struct {
	Channel RawPublisher
}

func NewRabbitPublisher(ch RawPublisher) *RabbitPublisher {
	return &RabbitPublisher{Channel: ch}
}

func (p *RabbitPublisher) Publish(ctx context.Context, events ...subscriber.Event) error {
	for _, e := range events {
		b, err := json.Marshal(envelope(e))
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.Name(), err)
		}
		if err := p.Channel.Publish(ctx, e.Name(), "application/json", b); err != nil {
			return fmt.Errorf("publish %s: %w", e.Name(), err)
		}
	}
	return nil
}

var _ subscriber.EventPublisher = (*RabbitPublisher)(nil)
