package subscriber

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const ConfirmationSubject = "Welcome to our newsletter!"

// Command is one of the subscriber commands below.
type Command interface{ isCommand() }

type RegisterSubscriber struct {
	ID    uuid.UUID
	Email string
	Name  string
}

type SendConfirmationMessage struct {
	ID    uuid.UUID
	Token string
}

type ConfirmSubscription struct {
	ID uuid.UUID
}

type UpdateSubscriber struct {
	ID   uuid.UUID
	Name string
}

type VerifySubscriberEmail struct {
	ID     uuid.UUID
	Status Status
}

func (RegisterSubscriber) isCommand()      {}
func (SendConfirmationMessage) isCommand() {}
func (ConfirmSubscription) isCommand()     {}
func (UpdateSubscriber) isCommand()        {}
func (VerifySubscriberEmail) isCommand()   {}

// ConfirmationURL builds the link embedded in the confirmation message.
func ConfirmationURL(exposingAddress, token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?token=%s", exposingAddress, url.QueryEscape(token))
}

// ConfirmationContent is the HTML body of the confirmation message.
func ConfirmationContent(confirmationURL string) string {
	return fmt.Sprintf(`Welcome to our newsletter! Click <a href="%s">here</a> to confirm your subscription.`, confirmationURL)
}

// CommandExecutor validates commands and drives subscribers through the
// repository. Events is optional.
type CommandExecutor struct {
	Repo            Repository
	Messenger       Messenger
	Events          EventPublisher
	Logger          logrus.FieldLogger
	ExposingAddress string
	Lifecycle       Lifecycle
}

func NewCommandExecutor(repo Repository, messenger Messenger, exposingAddress string, lifecycle Lifecycle, logger logrus.FieldLogger) *CommandExecutor {
	if lifecycle == "" {
		lifecycle = LifecycleConfirmation
	}
	return &CommandExecutor{
		Repo:            repo,
		Messenger:       messenger,
		Logger:          logger,
		ExposingAddress: exposingAddress,
		Lifecycle:       lifecycle,
	}
}

func (e *CommandExecutor) Execute(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case RegisterSubscriber:
		return e.register(ctx, c)
	case SendConfirmationMessage:
		return e.sendConfirmation(ctx, c)
	case ConfirmSubscription:
		return e.modify(ctx, c.ID, func(s *Subscriber) (*Subscriber, error) {
			var err error
			if s.Lifecycle() == LifecycleVerification {
				err = s.VerifyEmailAs(StatusValid)
			} else {
				err = s.Confirm()
			}
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	case UpdateSubscriber:
		if _, err := ParseName(c.Name); err != nil {
			return err
		}
		return e.modify(ctx, c.ID, func(s *Subscriber) (*Subscriber, error) {
			if err := s.Update(c.Name); err != nil {
				return nil, err
			}
			return s, nil
		})
	case VerifySubscriberEmail:
		return e.modify(ctx, c.ID, func(s *Subscriber) (*Subscriber, error) {
			if err := s.VerifyEmailAs(c.Status); err != nil {
				return nil, err
			}
			return s, nil
		})
	case nil:
		return Unexpected(fmt.Errorf("nil command"))
	default:
		return Unexpected(fmt.Errorf("unsupported command %T", cmd))
	}
}

func (e *CommandExecutor) register(ctx context.Context, c RegisterSubscriber) error {
	s, err := Register(c.ID, c.Email, c.Name, e.Lifecycle)
	if err != nil {
		return err
	}

	created, err := e.Repo.Create(ctx, s)
	if err != nil {
		return err
	}
	if created {
		e.publish(ctx, s)
		return nil
	}

	// Redelivered registrations for the same id and address are accepted
	// without touching the stored subscriber. An id is never re-registered
	// under another address.
	existing, err := e.Repo.FindByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Email() == s.Email() {
		return nil
	}
	return ErrInvalidSubscriberEmail
}

func (e *CommandExecutor) sendConfirmation(ctx context.Context, c SendConfirmationMessage) error {
	s, err := e.Repo.FindByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if s == nil {
		return NotFound(c.ID)
	}
	link := ConfirmationURL(e.ExposingAddress, c.Token)
	if err := e.Messenger.Send(ctx, s, ConfirmationSubject, ConfirmationContent(link)); err != nil {
		if IsDomainError(err) {
			return err
		}
		return MessengerFailure(err)
	}
	return nil
}

func (e *CommandExecutor) modify(ctx context.Context, id uuid.UUID, fn Modifier) error {
	s, err := e.Repo.Modify(ctx, id, fn)
	if err != nil {
		return err
	}
	e.publish(ctx, s)
	return nil
}

func (e *CommandExecutor) publish(ctx context.Context, s *Subscriber) {
	if s == nil {
		return
	}
	events := s.PullEvents()
	if e.Events == nil || len(events) == 0 {
		return
	}
	if err := e.Events.Publish(ctx, events...); err != nil && e.Logger != nil {
		e.Logger.WithError(err).WithField("subscriber_id", s.ID()).Warn("publish subscriber events failed")
	}
}
