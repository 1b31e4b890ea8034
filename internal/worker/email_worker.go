// Package worker delivers email jobs queued by the queue messenger.
package worker

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/metrics"
	"github.com/oksasatya/newsletter/pkg/mailer"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
)

var (
	errNoRecipient = errors.New("email job without recipient")
	jobJSON        = jsoniter.ConfigCompatibleWithStandardLibrary
)

// EmailWorker renders queued jobs and sends them through Sender. Jobs that
// cannot be decoded or rendered are dropped; send failures are requeued.
type EmailWorker struct {
	Sender  mailer.Sender
	Metrics metrics.Recorder
	Logger  logrus.FieldLogger
	Timeout time.Duration
}

func NewEmailWorker(sender mailer.Sender, rec metrics.Recorder, logger logrus.FieldLogger) *EmailWorker {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &EmailWorker{Sender: sender, Metrics: rec, Logger: logger, Timeout: 15 * time.Second}
}

func (w *EmailWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

func (w *EmailWorker) Handle(ctx context.Context, d amqp.Delivery) {
	var job mailer.EmailJob
	if err := jobJSON.Unmarshal(d.Body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		_ = d.Nack(false, false)
		return
	}
	log := w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template})

	subject, text, html, err := Render(job)
	if err != nil {
		log.WithError(err).Warn("render email job failed")
		_ = d.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Metrics.RecordMessage("job", metrics.OutcomeError)
		log.WithError(err).Warn("send email job failed")
		_ = d.Nack(false, true)
		return
	}
	w.Metrics.RecordMessage("job", metrics.OutcomeSuccess)
	_ = d.Ack(false)
}

// Render resolves a job into its final subject and bodies. Template jobs are
// rendered; pre-rendered jobs pass through.
func Render(job mailer.EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", errNoRecipient
	}
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || v == "" {
		job.Data["Email"] = job.To
	}
	return mailtpl.Render(job.Template, job.Data)
}
