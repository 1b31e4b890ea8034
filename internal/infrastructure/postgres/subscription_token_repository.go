package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
)

type SubscriptionTokenRepository struct {
	pool DB
}

func NewSubscriptionTokenRepository(pool DB) *SubscriptionTokenRepository {
	return &SubscriptionTokenRepository{pool: pool}
}

func (r *SubscriptionTokenRepository) Save(ctx context.Context, t *subscriptiontoken.Token) error {
	query, args, err := dialect.Insert(tableSubscriptionTokens).
		Prepared(true).
		Rows(goqu.Record{
			colToken:        t.Token,
			colSubscriberID: t.SubscriberID.String(),
			colIssuedAt:     t.IssuedAt,
			colExpiredAt:    t.ExpiredAt,
		}).
		ToSQL()
	if err != nil {
		return subscriptiontoken.Unexpected(err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return subscriptiontoken.RepositoryFailure(err)
	}
	return nil
}

func (r *SubscriptionTokenRepository) FindByToken(ctx context.Context, token string) (*subscriptiontoken.Token, error) {
	return r.findOne(ctx, selectTokens().Where(goqu.C(colToken).Eq(token)))
}

// FindBySubscriberID returns the most recently issued token of the subscriber.
func (r *SubscriptionTokenRepository) FindBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*subscriptiontoken.Token, error) {
	return r.findOne(ctx, selectTokens().
		Where(goqu.C(colSubscriberID).Eq(subscriberID.String())).
		Order(goqu.C(colIssuedAt).Desc()))
}

func (r *SubscriptionTokenRepository) findOne(ctx context.Context, ds *goqu.SelectDataset) (*subscriptiontoken.Token, error) {
	query, args, err := ds.Limit(1).ToSQL()
	if err != nil {
		return nil, subscriptiontoken.Unexpected(err)
	}
	var (
		t            subscriptiontoken.Token
		subscriberID string
		issuedAt     time.Time
		expiredAt    time.Time
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(&t.Token, &subscriberID, &issuedAt, &expiredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, subscriptiontoken.RepositoryFailure(err)
	}
	id, err := uuid.Parse(subscriberID)
	if err != nil {
		return nil, subscriptiontoken.Unexpected(err)
	}
	t.SubscriberID = id
	t.IssuedAt = issuedAt.UTC()
	t.ExpiredAt = expiredAt.UTC()
	return &t, nil
}

func selectTokens() *goqu.SelectDataset {
	return dialect.From(tableSubscriptionTokens).
		Prepared(true).
		Select(colToken, colSubscriberID, colIssuedAt, colExpiredAt)
}

var _ subscriptiontoken.Repository = (*SubscriptionTokenRepository)(nil)
