package subscriber

import (
	"context"

	"github.com/google/uuid"
)

// Modifier transforms a loaded subscriber. Returning an error aborts the
// surrounding Modify and leaves the stored subscriber untouched.
type Modifier func(s *Subscriber) (*Subscriber, error)

// Repository persists subscribers. Finders return (nil, nil) when nothing
// matches.
type Repository interface {
	// Save inserts or updates by id. A different subscriber already holding
	// the same email yields ErrInvalidSubscriberEmail.
	Save(ctx context.Context, s *Subscriber) error
	// Create inserts s only when its id is unknown and reports whether it
	// did. The email rule of Save applies.
	Create(ctx context.Context, s *Subscriber) (bool, error)
	// Modify loads id, applies fn and persists the result in one transaction.
	// A missing id yields a NotFoundError.
	Modify(ctx context.Context, id uuid.UUID, fn Modifier) (*Subscriber, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Subscriber, error)
	FindByEmail(ctx context.Context, email string) (*Subscriber, error)
	FindByStatus(ctx context.Context, status Status) ([]*Subscriber, error)
	FindAll(ctx context.Context) ([]*Subscriber, error)
}

// Messenger delivers a notification to a subscriber's address.
type Messenger interface {
	Send(ctx context.Context, recipient *Subscriber, subject, content string) error
}

// EventPublisher forwards domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}
