package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

// SubscriberRepository keeps subscribers in process memory. Modify holds the
// write lock for the whole load-transform-persist sequence.
type SubscriberRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*subscriber.Subscriber
	order []uuid.UUID
}

func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{byID: make(map[uuid.UUID]*subscriber.Subscriber)}
}

func (r *SubscriberRepository) Save(ctx context.Context, s *subscriber.Subscriber) error {
	if err := ctx.Err(); err != nil {
		return subscriber.RepositoryFailure(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store(s)
}

func (r *SubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, subscriber.RepositoryFailure(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.ID()]; exists {
		return false, nil
	}
	if err := r.store(s); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SubscriberRepository) Modify(ctx context.Context, id uuid.UUID, fn subscriber.Modifier) (*subscriber.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, subscriber.NotFound(id)
	}
	modified, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if modified == nil || modified.ID() != id {
		return nil, subscriber.Unexpected(errModifiedIdentity)
	}
	if err := r.store(modified); err != nil {
		return nil, err
	}
	return modified, nil
}

func (r *SubscriberRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id].Clone(), nil
}

func (r *SubscriberRepository) FindByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if s := r.byID[id]; sameEmail(s.Email().String(), email) {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (r *SubscriberRepository) FindByStatus(ctx context.Context, status subscriber.Status) ([]*subscriber.Subscriber, error) {
	return r.filter(ctx, func(s *subscriber.Subscriber) bool { return s.Status() == status })
}

func (r *SubscriberRepository) FindAll(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.filter(ctx, func(*subscriber.Subscriber) bool { return true })
}

func (r *SubscriberRepository) filter(ctx context.Context, keep func(*subscriber.Subscriber) bool) ([]*subscriber.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*subscriber.Subscriber, 0, len(r.order))
	for _, id := range r.order {
		if s := r.byID[id]; keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// store must be called with the write lock held.
func (r *SubscriberRepository) store(s *subscriber.Subscriber) error {
	for id, other := range r.byID {
		if id != s.ID() && sameEmail(other.Email().String(), s.Email().String()) {
			return subscriber.ErrInvalidSubscriberEmail
		}
	}
	stored := s.Clone()
	stored.PullEvents()
	if _, exists := r.byID[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.byID[s.ID()] = stored
	return nil
}

func sameEmail(a, b string) bool { return strings.EqualFold(a, b) }

var _ subscriber.Repository = (*SubscriberRepository)(nil)
