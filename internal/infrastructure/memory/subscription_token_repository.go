package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
)

type SubscriptionTokenRepository struct {
	mu      sync.RWMutex
	byToken map[string]subscriptiontoken.Token
}

func NewSubscriptionTokenRepository() *SubscriptionTokenRepository {
	return &SubscriptionTokenRepository{byToken: make(map[string]subscriptiontoken.Token)}
}

func (r *SubscriptionTokenRepository) Save(ctx context.Context, t *subscriptiontoken.Token) error {
	if err := ctx.Err(); err != nil {
		return subscriptiontoken.RepositoryFailure(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byToken[t.Token]; exists {
		return subscriptiontoken.RepositoryFailure(fmt.Errorf("duplicate subscription token %q", t.Token))
	}
	r.byToken[t.Token] = *t
	return nil
}

func (r *SubscriptionTokenRepository) FindByToken(ctx context.Context, token string) (*subscriptiontoken.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriptiontoken.RepositoryFailure(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byToken[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// FindBySubscriberID returns the most recently issued token of the subscriber.
func (r *SubscriptionTokenRepository) FindBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*subscriptiontoken.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriptiontoken.RepositoryFailure(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *subscriptiontoken.Token
	for _, t := range r.byToken {
		if t.SubscriberID != subscriberID {
			continue
		}
		if latest == nil || t.IssuedAt.After(latest.IssuedAt) {
			c := t
			latest = &c
		}
	}
	return latest, nil
}

var _ subscriptiontoken.Repository = (*SubscriptionTokenRepository)(nil)
