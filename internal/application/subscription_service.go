package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
	"github.com/oksasatya/newsletter/internal/metrics"
)

// TracerName names the tracer the entrypoints hand to the services.
const TracerName = "github.com/oksasatya/newsletter/internal/application"

func noopTracer() trace.Tracer { return noop.NewTracerProvider().Tracer(TracerName) }

// SubscriberCommands executes subscriber commands.
type SubscriberCommands interface {
	Execute(ctx context.Context, cmd subscriber.Command) error
}

// TokenIssuer issues subscription tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, cmd subscriptiontoken.IssueSubscriptionToken) (*subscriptiontoken.Token, error)
}

// TokenReader looks tokens up by value.
type TokenReader interface {
	Read(ctx context.Context, q subscriptiontoken.InquireSubscriptionTokenByToken) (*subscriptiontoken.Token, error)
}

// SubscriptionService runs the registration saga and the confirmation flow.
type SubscriptionService struct {
	Subscribers SubscriberCommands
	Tokens      TokenIssuer
	TokenReader TokenReader
	Metrics     metrics.Recorder
	Logger      logrus.FieldLogger
	Tracer      trace.Tracer
	NewID       func() uuid.UUID
	Now         func() time.Time
}

func NewSubscriptionService(subscribers SubscriberCommands, tokens TokenIssuer, reader TokenReader, rec metrics.Recorder, logger logrus.FieldLogger) *SubscriptionService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SubscriptionService{
		Subscribers: subscribers,
		Tokens:      tokens,
		TokenReader: reader,
		Metrics:     rec,
		Logger:      logger,
		Tracer:      noopTracer(),
		NewID:       uuid.New,
		Now:         time.Now,
	}
}

// Subscribe registers a subscriber, issues a token and sends the
// confirmation message. Earlier steps are not undone when a later one fails:
// the subscriber may stay registered with a token but without a message.
func (s *SubscriptionService) Subscribe(ctx context.Context, email, name string) (_ uuid.UUID, err error) {
	ctx, span := s.Tracer.Start(ctx, "SubscriptionService.Subscribe")
	defer func() { endSpan(span, err) }()

	id := s.NewID()
	span.SetAttributes(attribute.String("subscriber.id", id.String()))

	if err := s.Subscribers.Execute(ctx, subscriber.RegisterSubscriber{ID: id, Email: email, Name: name}); err != nil {
		s.Metrics.RecordRegistration(registrationOutcome(err))
		return uuid.Nil, err
	}
	s.Metrics.RecordRegistration(metrics.OutcomeSuccess)

	token, err := s.Tokens.Issue(ctx, subscriptiontoken.IssueSubscriptionToken{SubscriberID: id})
	if err != nil {
		s.logWarn(err, id, "issue subscription token failed")
		return id, err
	}

	err = s.Subscribers.Execute(ctx, subscriber.SendConfirmationMessage{ID: id, Token: token.Token})
	if err != nil {
		s.Metrics.RecordMessage("confirmation", metrics.OutcomeError)
		s.logWarn(err, id, "send confirmation message failed")
		return id, err
	}
	s.Metrics.RecordMessage("confirmation", metrics.OutcomeSuccess)
	return id, nil
}

// Confirm resolves the token and confirms its subscriber. Unknown and
// expired tokens are both rejected before any subscriber is touched.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) (err error) {
	ctx, span := s.Tracer.Start(ctx, "SubscriptionService.Confirm")
	defer func() { endSpan(span, err) }()

	t, err := s.TokenReader.Read(ctx, subscriptiontoken.InquireSubscriptionTokenByToken{Token: token})
	if err != nil {
		s.Metrics.RecordConfirmation(confirmationOutcome(err))
		return err
	}
	if err := t.CheckUsable(s.Now()); err != nil {
		s.Metrics.RecordConfirmation(metrics.OutcomeInvalid)
		return err
	}
	if err := s.Subscribers.Execute(ctx, subscriber.ConfirmSubscription{ID: t.SubscriberID}); err != nil {
		s.Metrics.RecordConfirmation(confirmationOutcome(err))
		return err
	}
	s.Metrics.RecordConfirmation(metrics.OutcomeSuccess)
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *SubscriptionService) logWarn(err error, id uuid.UUID, msg string) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(causeOf(err)).WithField("subscriber_id", id).Warn(msg)
}

func registrationOutcome(err error) string {
	if errors.Is(err, subscriber.ErrInvalidSubscriberEmail) || errors.Is(err, subscriber.ErrInvalidSubscriberName) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

func confirmationOutcome(err error) string {
	if errors.Is(err, subscriptiontoken.ErrSubscriptionTokenNotFound) || errors.Is(err, subscriber.ErrSubscriberNotFound) {
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}

// causeOf returns the wrapped cause of a domain kind error when there is one.
func causeOf(err error) error {
	var se *subscriber.Error
	if errors.As(err, &se) && se.Cause != nil {
		return se.Cause
	}
	var te *subscriptiontoken.Error
	if errors.As(err, &te) && te.Cause != nil {
		return te.Cause
	}
	return err
}
