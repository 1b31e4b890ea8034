package application

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/metrics"
	"github.com/oksasatya/newsletter/pkg/sanitize"
)

// SubscriberReader runs subscriber queries.
type SubscriberReader interface {
	Read(ctx context.Context, q subscriber.Query) (subscriber.QueryResult, error)
}

// Issue is a newsletter ready to be sent.
type Issue struct {
	ID          uuid.UUID
	Title       string
	Content     string
	PublishedAt time.Time
}

// Archive keeps a copy of every published issue.
type Archive interface {
	Store(ctx context.Context, issue Issue) (location string, err error)
}

// PublishReport summarises one fan-out.
type PublishReport struct {
	IssueID    uuid.UUID
	Recipients int
	Delivered  int
	Failed     int
	ArchivedAt string
}

// PublicationService sends a newsletter to every eligible subscriber.
// Sanitizer, Archive and Limiter are optional.
type PublicationService struct {
	Reader    SubscriberReader
	Messenger subscriber.Messenger
	Sanitizer sanitize.Sanitizer
	Archive   Archive
	Limiter   *rate.Limiter
	Metrics   metrics.Recorder
	Logger    logrus.FieldLogger
	Tracer    trace.Tracer
	Now       func() time.Time
}

func NewPublicationService(reader SubscriberReader, messenger subscriber.Messenger, rec metrics.Recorder, logger logrus.FieldLogger) *PublicationService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &PublicationService{
		Reader:    reader,
		Messenger: messenger,
		Metrics:   rec,
		Logger:    logger,
		Tracer:    noopTracer(),
		Now:       time.Now,
	}
}

// Publish lists eligible subscribers and sends the issue to each of them.
// Only a failure to list recipients is returned; per-recipient send failures
// are logged and counted.
func (p *PublicationService) Publish(ctx context.Context, title, content string) (_ PublishReport, err error) {
	ctx, span := p.Tracer.Start(ctx, "PublicationService.Publish")
	defer func() { endSpan(span, err) }()

	result, err := p.Reader.Read(ctx, subscriber.InquireConfirmedSubscribers{})
	if err != nil {
		return PublishReport{}, err
	}
	recipients := result.Subscribers()
	span.SetAttributes(attribute.Int("newsletter.recipients", len(recipients)))

	issue := Issue{ID: uuid.New(), Title: title, Content: content, PublishedAt: p.Now().UTC()}
	if p.Sanitizer != nil {
		issue.Content = p.Sanitizer.Sanitize(content)
	}
	report := PublishReport{IssueID: issue.ID, Recipients: len(recipients)}
	log := p.logger().WithField("issue_id", issue.ID)

	if len(recipients) == 0 {
		log.Warn("no confirmed subscribers found")
	}

	for _, r := range recipients {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				log.WithError(err).WithField("remaining", len(recipients)-report.Delivered-report.Failed).
					Error("publication interrupted")
				return report, subscriber.Unexpected(err)
			}
		}
		if err := p.Messenger.Send(ctx, r, issue.Title, issue.Content); err != nil {
			report.Failed++
			p.Metrics.RecordMessage("newsletter", metrics.OutcomeError)
			log.WithError(err).WithFields(logrus.Fields{
				"subscriber_id": r.ID(),
				"email":         r.Email().String(),
			}).Error("send newsletter failed")
			continue
		}
		report.Delivered++
		p.Metrics.RecordMessage("newsletter", metrics.OutcomeSuccess)
	}

	if p.Archive != nil {
		location, err := p.Archive.Store(ctx, issue)
		if err != nil {
			log.WithError(err).Warn("archive newsletter failed")
		} else {
			report.ArchivedAt = location
		}
	}

	log.WithFields(logrus.Fields{
		"recipients": report.Recipients,
		"delivered":  report.Delivered,
		"failed":     report.Failed,
	}).Info("newsletter published")
	return report, nil
}

func (p *PublicationService) logger() logrus.FieldLogger {
	if p.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return p.Logger
}
