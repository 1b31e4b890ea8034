package subscriber

import (
	"time"

	"github.com/google/uuid"
)

// Event names, also used as routing keys and projection discriminators.
const (
	EventRegistered           = "subscriber.registered"
	EventNameUpdated          = "subscriber.name_updated"
	EventConfirmed            = "subscriber.confirmed"
	EventEmailVerifiedValid   = "subscriber.email_verified_as_valid"
	EventEmailVerifiedInvalid = "subscriber.email_verified_as_invalid"
)

// Event is a fact recorded by the aggregate after a state change.
type Event interface {
	Name() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type eventBase struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"occurred_at"`
}

func (e eventBase) AggregateID() uuid.UUID { return e.ID }
func (e eventBase) OccurredAt() time.Time  { return e.At }

type Registered struct {
	eventBase
	Email          string `json:"email"`
	SubscriberName string `json:"name"`
	Status         Status `json:"status"`
}

func (Registered) Name() string { return EventRegistered }

type NameUpdated struct {
	eventBase
	NewName string `json:"name"`
}

func (NameUpdated) Name() string { return EventNameUpdated }

type Confirmed struct {
	eventBase
}

func (Confirmed) Name() string { return EventConfirmed }

type EmailVerified struct {
	eventBase
	Status Status `json:"status"`
}

func (e EmailVerified) Name() string {
	if e.Status == StatusInvalid {
		return EventEmailVerifiedInvalid
	}
	return EventEmailVerifiedValid
}
