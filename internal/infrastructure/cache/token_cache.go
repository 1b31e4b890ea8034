// Package cache holds Redis read-through decorators for repositories.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
	"github.com/oksasatya/newsletter/pkg/helpers"
)

const tokenKeyPrefix = "newsletter:token:"

type cachedToken struct {
	Token        string    `json:"token"`
	SubscriberID uuid.UUID `json:"subscriber_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// TokenRepository serves FindByToken from Redis and falls back to the
// wrapped repository on a miss. Entries never outlive the token itself.
// Redis failures are logged and the wrapped repository answers instead.
type TokenRepository struct {
	Next   subscriptiontoken.Repository
	Redis  *redis.Client
	TTL    time.Duration
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewTokenRepository(next subscriptiontoken.Repository, rdb *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *TokenRepository {
	return &TokenRepository{Next: next, Redis: rdb, TTL: ttl, Logger: logger, Now: time.Now}
}

func (r *TokenRepository) Save(ctx context.Context, t *subscriptiontoken.Token) error {
	if err := r.Next.Save(ctx, t); err != nil {
		return err
	}
	r.put(ctx, t)
	return nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*subscriptiontoken.Token, error) {
	var c cachedToken
	found, err := helpers.RedisGetJSON(ctx, r.Redis, tokenKeyPrefix+token, &c)
	if err != nil {
		r.warn(err, "token cache read failed")
	}
	if found {
		return &subscriptiontoken.Token{
			Token:        c.Token,
			SubscriberID: c.SubscriberID,
			IssuedAt:     c.IssuedAt,
			ExpiredAt:    c.ExpiredAt,
		}, nil
	}

	t, err := r.Next.FindByToken(ctx, token)
	if err != nil || t == nil {
		return t, err
	}
	r.put(ctx, t)
	return t, nil
}

func (r *TokenRepository) FindBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*subscriptiontoken.Token, error) {
	return r.Next.FindBySubscriberID(ctx, subscriberID)
}

func (r *TokenRepository) put(ctx context.Context, t *subscriptiontoken.Token) {
	ttl := t.ExpiredAt.Sub(r.Now())
	if r.TTL > 0 && r.TTL < ttl {
		ttl = r.TTL
	}
	if ttl <= 0 {
		return
	}
	c := cachedToken{Token: t.Token, SubscriberID: t.SubscriberID, IssuedAt: t.IssuedAt, ExpiredAt: t.ExpiredAt}
	if err := helpers.RedisSetJSON(ctx, r.Redis, tokenKeyPrefix+t.Token, c, ttl); err != nil {
		r.warn(err, "token cache write failed")
	}
}

func (r *TokenRepository) warn(err error, msg string) {
	if r.Logger != nil {
		r.Logger.WithError(err).Warn(msg)
	}
}

var _ subscriptiontoken.Repository = (*TokenRepository)(nil)
