// Package events forwards subscriber domain events to RabbitMQ and keeps an
// Elasticsearch projection of subscribers up to date.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the wire shape of a published event.
type Envelope struct {
	Name        string           `json:"name"`
	AggregateID uuid.UUID        `json:"aggregate_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     subscriber.Event `json:"payload"`
}

func envelope(e subscriber.Event) Envelope {
	return Envelope{Name: e.Name(), AggregateID: e.AggregateID(), OccurredAt: e.OccurredAt(), Payload: e}
}

// FanOut publishes to every publisher and joins their errors.
type FanOut []subscriber.EventPublisher

func (f FanOut) Publish(ctx context.Context, events ...subscriber.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ subscriber.EventPublisher = FanOut(nil)
