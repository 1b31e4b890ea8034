package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitListener registers a subscriber per delivery. Success is acked,
// bodies that can never succeed are dropped, everything else is requeued.
type RabbitListener struct {
	Commands Commands
	Logger   logrus.FieldLogger
}

func NewRabbitListener(commands Commands, logger logrus.FieldLogger) *RabbitListener {
	return &RabbitListener{Commands: commands, Logger: logger}
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
func (l *RabbitListener) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			l.Handle(ctx, d)
		}
	}
}

func (l *RabbitListener) Handle(ctx context.Context, d amqp.Delivery) {
	log := l.Logger.WithField("delivery_tag", d.DeliveryTag)
	cmd, err := register(ctx, l.Commands, d.Body)
	if err != nil {
		requeue := !permanent(err)
		log.WithError(err).WithField("requeue", requeue).Warn("registration from rabbitmq failed")
		_ = d.Nack(false, requeue)
		return
	}
	if err := d.Ack(false); err != nil {
		log.WithError(err).Warn("ack failed")
		return
	}
	log.WithField("subscriber_id", cmd.ID).Info("subscriber registered from rabbitmq")
}
