package subscriptiontoken

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores tokens. Finders return (nil, nil) when nothing matches.
type Repository interface {
	// Save is insert-only; a duplicate token value fails with
	// ErrRepositoryOperationFailed.
	Save(ctx context.Context, t *Token) error
	FindByToken(ctx context.Context, token string) (*Token, error)
	FindBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*Token, error)
}
