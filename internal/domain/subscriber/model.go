package subscriber

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is the aggregate root of the subscription context.
// State changes go through its methods; each change is recorded as a
// pending event until PullEvents drains them.
type Subscriber struct {
	id        uuid.UUID
	email     Email
	name      Name
	status    Status
	lifecycle Lifecycle

	pending []Event
}

// Register validates the raw email and name and builds a subscriber in the
// lifecycle's initial status.
func Register(id uuid.UUID, email, name string, lifecycle Lifecycle) (*Subscriber, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	e, err := ParseEmail(email)
	if err != nil {
		return nil, err
	}
	if lifecycle == "" {
		lifecycle = LifecycleConfirmation
	}
	s := &Subscriber{
		id:        id,
		email:     e,
		name:      n,
		status:    lifecycle.InitialStatus(),
		lifecycle: lifecycle,
	}
	s.record(Registered{
		eventBase:      s.base(),
		Email:          e.String(),
		SubscriberName: n.String(),
		Status:         s.status,
	})
	return s, nil
}

// Restore rebuilds a subscriber from stored values without recording events.
func Restore(id uuid.UUID, email, name string, status Status) (*Subscriber, error) {
	e, err := ParseEmail(email)
	if err != nil {
		return nil, err
	}
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	lc, ok := lifecycleOf(status)
	if !ok {
		return nil, ErrInvalidSubscriberStatus
	}
	return &Subscriber{id: id, email: e, name: n, status: status, lifecycle: lc}, nil
}

func (s *Subscriber) ID() uuid.UUID        { return s.id }
func (s *Subscriber) Email() Email         { return s.email }
func (s *Subscriber) Name() Name           { return s.name }
func (s *Subscriber) Status() Status       { return s.status }
func (s *Subscriber) Lifecycle() Lifecycle { return s.lifecycle }

// Eligible reports whether the subscriber should receive newsletters.
func (s *Subscriber) Eligible() bool { return s.status == s.lifecycle.EligibleStatus() }

// Confirm moves a confirmation-lifecycle subscriber to Confirmed.
// Confirming an already confirmed subscriber is a no-op.
func (s *Subscriber) Confirm() error {
	if s.lifecycle != LifecycleConfirmation {
		return ErrInvalidSubscriberStatus
	}
	if s.status == StatusConfirmed {
		return nil
	}
	s.status = StatusConfirmed
	s.record(Confirmed{eventBase: s.base()})
	return nil
}

// VerifyEmailAs sets the verification outcome. Unverified is only ever the
// initial state and is rejected as a target.
func (s *Subscriber) VerifyEmailAs(status Status) error {
	if s.lifecycle != LifecycleVerification {
		return ErrInvalidSubscriberStatus
	}
	switch status {
	case StatusUnverified:
		return ErrInvalidSubscriberEmailVerificationStatus
	case StatusValid, StatusInvalid:
	default:
		return ErrInvalidSubscriberStatus
	}
	s.status = status
	s.record(EmailVerified{eventBase: s.base(), Status: status})
	return nil
}

// Update replaces the subscriber's name.
func (s *Subscriber) Update(name string) error {
	n, err := ParseName(name)
	if err != nil {
		return err
	}
	if n == s.name {
		return nil
	}
	s.name = n
	s.record(NameUpdated{eventBase: s.base(), NewName: n.String()})
	return nil
}

// PullEvents returns the pending events and clears the buffer.
func (s *Subscriber) PullEvents() []Event {
	out := s.pending
	s.pending = nil
	return out
}

// PendingEvents returns the buffered events without draining them.
func (s *Subscriber) PendingEvents() []Event {
	out := make([]Event, len(s.pending))
	copy(out, s.pending)
	return out
}

// Clone returns a deep copy; repositories hand out clones so callers never
// share a live aggregate.
func (s *Subscriber) Clone() *Subscriber {
	if s == nil {
		return nil
	}
	c := *s
	c.pending = s.PendingEvents()
	return &c
}

func (s *Subscriber) base() eventBase {
	return eventBase{ID: s.id, At: time.Now().UTC()}
}

func (s *Subscriber) record(e Event) {
	s.pending = append(s.pending, e)
}
