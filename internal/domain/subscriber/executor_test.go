package subscriber_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/infrastructure/memory"
	"github.com/oksasatya/newsletter/internal/infrastructure/messenger"
)

type eventSink struct {
	mu     sync.Mutex
	events []subscriber.Event
	err    error
}

func (s *eventSink) Publish(_ context.Context, events ...subscriber.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return s.err
}

func (s *eventSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Name())
	}
	return out
}

type fixture struct {
	repo      *memory.SubscriberRepository
	messenger *messenger.Recording
	events    *eventSink
	exec      *subscriber.CommandExecutor
}

func newFixture(lifecycle subscriber.Lifecycle) *fixture {
	f := &fixture{
		repo:      memory.NewSubscriberRepository(),
		messenger: messenger.NewRecording(nil),
		events:    &eventSink{},
	}
	f.exec = subscriber.NewCommandExecutor(f.repo, f.messenger, "http://localhost:8080", lifecycle, nil)
	f.exec.Events = f.events
	return f
}

func (f *fixture) register(t *testing.T, email, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.exec.Execute(context.Background(), subscriber.RegisterSubscriber{ID: id, Email: email, Name: name}))
	return id
}

func TestExecuteRegisterSubscriber(t *testing.T) {
	ctx := context.Background()

	t.Run("stores an unconfirmed subscriber", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")

		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "ada@example.com", got.Email().String())
		assert.Equal(t, subscriber.StatusUnconfirmed, got.Status())
		assert.Equal(t, []string{subscriber.EventRegistered}, f.events.names())
	})

	t.Run("invalid input stores nothing", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		err := f.exec.Execute(ctx, subscriber.RegisterSubscriber{ID: uuid.New(), Email: "nope", Name: "Ada Lovelace"})
		assert.ErrorIs(t, err, subscriber.ErrInvalidSubscriberEmail)

		all, err := f.repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Empty(t, f.events.names())
	})

	t.Run("duplicate email under another id is rejected", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		f.register(t, "ada@example.com", "Ada Lovelace")

		err := f.exec.Execute(ctx, subscriber.RegisterSubscriber{ID: uuid.New(), Email: "ada@example.com", Name: "Other Ada"})
		assert.ErrorIs(t, err, subscriber.ErrInvalidSubscriberEmail)
	})

	t.Run("redelivery with the same id and email is a no-op", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")
		require.NoError(t, f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: id}))

		require.NoError(t, f.exec.Execute(ctx, subscriber.RegisterSubscriber{ID: id, Email: "ada@example.com", Name: "Ada Lovelace"}))
		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscriber.StatusConfirmed, got.Status())
	})

	t.Run("known id under another email is rejected", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")

		err := f.exec.Execute(ctx, subscriber.RegisterSubscriber{ID: id, Email: "grace@example.com", Name: "Grace Hopper"})
		assert.ErrorIs(t, err, subscriber.ErrInvalidSubscriberEmail)

		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email().String())
	})

	t.Run("concurrent registrations of one id keep a single address", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := uuid.New()
		emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}

		var wg sync.WaitGroup
		errs := make([]error, len(emails))
		for i, email := range emails {
			wg.Add(1)
			go func(i int, email string) {
				defer wg.Done()
				errs[i] = f.exec.Execute(ctx, subscriber.RegisterSubscriber{ID: id, Email: email, Name: "Ada Lovelace"})
			}(i, email)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, subscriber.ErrInvalidSubscriberEmail)
		}
		assert.Equal(t, 1, succeeded)

		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Contains(t, emails, got.Email().String())
		assert.Equal(t, []string{subscriber.EventRegistered}, f.events.names())
	})

	t.Run("event publish failure does not fail the command", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		f.events.err = errors.New("broker down")
		f.register(t, "ada@example.com", "Ada Lovelace")
	})
}

func TestExecuteSendConfirmationMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the confirmation link", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")

		require.NoError(t, f.exec.Execute(ctx, subscriber.SendConfirmationMessage{ID: id, Token: "tok-123"}))
		msg, ok := f.messenger.Last()
		require.True(t, ok)
		assert.Equal(t, "ada@example.com", msg.To)
		assert.Equal(t, subscriber.ConfirmationSubject, msg.Subject)
		assert.Contains(t, msg.Content, "http://localhost:8080/subscriptions/confirm?token=tok-123")
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		err := f.exec.Execute(ctx, subscriber.SendConfirmationMessage{ID: uuid.New(), Token: "tok"})
		assert.ErrorIs(t, err, subscriber.ErrSubscriberNotFound)
		assert.Empty(t, f.messenger.Messages())
	})

	t.Run("messenger failure is wrapped", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")
		cause := errors.New("smtp down")
		f.messenger.Fail = func(string) error { return cause }

		err := f.exec.Execute(ctx, subscriber.SendConfirmationMessage{ID: id, Token: "tok"})
		assert.ErrorIs(t, err, subscriber.ErrMessengerOperationFailed)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "Failed to send a message through messenger", err.Error())
	})
}

func TestExecuteConfirmSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmation lifecycle", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		id := f.register(t, "ada@example.com", "Ada Lovelace")

		require.NoError(t, f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: id}))
		require.NoError(t, f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: id}))

		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscriber.StatusConfirmed, got.Status())
		assert.Equal(t, []string{subscriber.EventRegistered, subscriber.EventConfirmed}, f.events.names())
	})

	t.Run("verification lifecycle verifies as valid", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleVerification)
		id := f.register(t, "ada@example.com", "Ada Lovelace")

		require.NoError(t, f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: id}))
		got, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, subscriber.StatusValid, got.Status())
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		f := newFixture(subscriber.LifecycleConfirmation)
		err := f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: uuid.New()})
		assert.ErrorIs(t, err, subscriber.ErrSubscriberNotFound)
	})
}

func TestExecuteUpdateAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(subscriber.LifecycleVerification)
	id := f.register(t, "ada@example.com", "Ada Lovelace")

	require.NoError(t, f.exec.Execute(ctx, subscriber.UpdateSubscriber{ID: id, Name: "Countess Ada"}))
	assert.ErrorIs(t, f.exec.Execute(ctx, subscriber.UpdateSubscriber{ID: id, Name: "x"}), subscriber.ErrInvalidSubscriberName)

	require.NoError(t, f.exec.Execute(ctx, subscriber.VerifySubscriberEmail{ID: id, Status: subscriber.StatusInvalid}))
	assert.ErrorIs(t,
		f.exec.Execute(ctx, subscriber.VerifySubscriberEmail{ID: id, Status: subscriber.StatusUnverified}),
		subscriber.ErrInvalidSubscriberEmailVerificationStatus,
	)

	got, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Countess Ada", got.Name().String())
	assert.Equal(t, subscriber.StatusInvalid, got.Status())
}

func TestExecuteRejectsNilCommand(t *testing.T) {
	f := newFixture(subscriber.LifecycleConfirmation)
	assert.ErrorIs(t, f.exec.Execute(context.Background(), nil), subscriber.ErrUnexpected)
}

func TestQueryReader(t *testing.T) {
	ctx := context.Background()
	f := newFixture(subscriber.LifecycleConfirmation)
	ada := f.register(t, "ada@example.com", "Ada Lovelace")
	f.register(t, "grace@example.com", "Grace Hopper")
	require.NoError(t, f.exec.Execute(ctx, subscriber.ConfirmSubscription{ID: ada}))

	reader := subscriber.NewQueryReader(f.repo, subscriber.LifecycleConfirmation)

	t.Run("confirmed only", func(t *testing.T) {
		res, err := reader.Read(ctx, subscriber.InquireConfirmedSubscribers{})
		require.NoError(t, err)
		assert.True(t, res.IsMultiple())
		list := res.Subscribers()
		require.Len(t, list, 1)
		assert.Equal(t, ada, list[0].ID())

		_, err = res.Subscriber()
		assert.ErrorIs(t, err, subscriber.ErrMultipleSubscribersFound)
	})

	t.Run("all", func(t *testing.T) {
		res, err := reader.Read(ctx, subscriber.InquiryAllSubscribers{})
		require.NoError(t, err)
		assert.Len(t, res.Subscribers(), 2)
	})

	t.Run("single", func(t *testing.T) {
		res, err := reader.Read(ctx, subscriber.InquirySubscriber{ID: ada})
		require.NoError(t, err)
		s, err := res.Subscriber()
		require.NoError(t, err)
		assert.Equal(t, ada, s.ID())
		assert.Len(t, res.Subscribers(), 1)
	})

	t.Run("single missing", func(t *testing.T) {
		_, err := reader.Read(ctx, subscriber.InquirySubscriber{ID: uuid.New()})
		assert.ErrorIs(t, err, subscriber.ErrSubscriberNotFound)
	})
}

func TestConfirmationURLEscapesToken(t *testing.T) {
	got := subscriber.ConfirmationURL("https://news.example.com", "a b&c")
	assert.Equal(t, "https://news.example.com/subscriptions/confirm?token=a+b%26c", got)
}
