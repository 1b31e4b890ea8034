package messenger

import (
	"context"
	"time"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/pkg/mailer"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
)

// JobPublisher puts a JSON job on a queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Queue defers delivery to the email worker by publishing an EmailJob.
// Send succeeds once the broker accepted the job.
type Queue struct {
	Publisher JobPublisher
	Brand     mailtpl.Brand
}

func NewQueue(publisher JobPublisher, brand mailtpl.Brand) *Queue {
	return &Queue{Publisher: publisher, Brand: brand}
}

func (q *Queue) Send(ctx context.Context, recipient *subscriber.Subscriber, subject, content string) error {
	job := mailer.EmailJob{
		To:       recipient.Email().String(),
		Template: mailtpl.Message,
		Data:     messageData(q.Brand, recipient, subject, content, time.Now()),
	}
	return q.Publisher.PublishJSON(ctx, job)
}

var _ subscriber.Messenger = (*Queue)(nil)
