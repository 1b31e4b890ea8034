package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

type SubscriberRepository struct {
	pool DB
}

func NewSubscriberRepository(pool DB) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

func (r *SubscriberRepository) Save(ctx context.Context, s *subscriber.Subscriber) error {
	return saveSubscriber(ctx, r.pool, s)
}

// Create inserts without an upsert. A primary key conflict means the id is
// already stored; any other unique violation comes from the email index.
func (r *SubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) (bool, error) {
	query, args, err := insertSubscriber(s, time.Now().UTC()).ToSQL()
	if err != nil {
		return false, subscriber.Unexpected(err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		switch {
		case violatesUnique(err, subscribersPKey):
			return false, nil
		case isUniqueViolation(err):
			return false, subscriber.ErrInvalidSubscriberEmail
		}
		return false, subscriber.RepositoryFailure(err)
	}
	return true, nil
}

// Modify locks the row with SELECT ... FOR UPDATE so concurrent modifications
// of one subscriber serialize.
func (r *SubscriberRepository) Modify(ctx context.Context, id uuid.UUID, fn subscriber.Modifier) (*subscriber.Subscriber, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args, err := selectSubscribers().
		Where(goqu.C(colID).Eq(id.String())).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, subscriber.Unexpected(err)
	}
	current, err := scanSubscriber(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, subscriber.NotFound(id)
	}

	modified, err := fn(current)
	if err != nil {
		return nil, err
	}
	if modified == nil || modified.ID() != id {
		return nil, subscriber.Unexpected(fmt.Errorf("modifier returned a different subscriber for %s", id))
	}
	if err := saveSubscriber(ctx, tx, modified); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	return modified, nil
}

func (r *SubscriberRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	return r.findOne(ctx, goqu.C(colID).Eq(id.String()))
}

func (r *SubscriberRepository) FindByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	return r.findOne(ctx, goqu.Func("LOWER", goqu.C(colEmail)).Eq(goqu.Func("LOWER", email)))
}

func (r *SubscriberRepository) FindByStatus(ctx context.Context, status subscriber.Status) ([]*subscriber.Subscriber, error) {
	return r.findMany(ctx, selectSubscribers().Where(goqu.C(colStatus).Eq(string(status))))
}

func (r *SubscriberRepository) FindAll(ctx context.Context) ([]*subscriber.Subscriber, error) {
	return r.findMany(ctx, selectSubscribers())
}

func (r *SubscriberRepository) findOne(ctx context.Context, where exp.Expression) (*subscriber.Subscriber, error) {
	query, args, err := selectSubscribers().Where(where).Limit(1).ToSQL()
	if err != nil {
		return nil, subscriber.Unexpected(err)
	}
	return scanSubscriber(r.pool.QueryRow(ctx, query, args...))
}

func (r *SubscriberRepository) findMany(ctx context.Context, ds *goqu.SelectDataset) ([]*subscriber.Subscriber, error) {
	query, args, err := ds.Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc()).ToSQL()
	if err != nil {
		return nil, subscriber.Unexpected(err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	defer rows.Close()

	var out []*subscriber.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, subscriber.RepositoryFailure(err)
	}
	return out, nil
}

func selectSubscribers() *goqu.SelectDataset {
	return dialect.From(tableSubscribers).
		Prepared(true).
		Select(colID, colEmail, colName, colStatus)
}

func insertSubscriber(s *subscriber.Subscriber, now time.Time) *goqu.InsertDataset {
	return dialect.Insert(tableSubscribers).
		Prepared(true).
		Rows(goqu.Record{
			colID:        s.ID().String(),
			colEmail:     s.Email().String(),
			colName:      s.Name().String(),
			colStatus:    string(s.Status()),
			colCreatedAt: now,
			colUpdatedAt: now,
		})
}

func upsertSubscriberSQL(s *subscriber.Subscriber, now time.Time) (string, []any, error) {
	return insertSubscriber(s, now).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colEmail:     goqu.L("EXCLUDED." + colEmail),
			colName:      goqu.L("EXCLUDED." + colName),
			colStatus:    goqu.L("EXCLUDED." + colStatus),
			colUpdatedAt: goqu.L("EXCLUDED." + colUpdatedAt),
		})).
		ToSQL()
}

func saveSubscriber(ctx context.Context, q querier, s *subscriber.Subscriber) error {
	query, args, err := upsertSubscriberSQL(s, time.Now().UTC())
	if err != nil {
		return subscriber.Unexpected(err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		// The id conflict is absorbed by the upsert, so a unique violation
		// can only come from the email index.
		if isUniqueViolation(err) {
			return subscriber.ErrInvalidSubscriberEmail
		}
		return subscriber.RepositoryFailure(err)
	}
	return nil
}

func scanSubscriber(row pgx.Row) (*subscriber.Subscriber, error) {
	var id, email, name, status string
	if err := row.Scan(&id, &email, &name, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, subscriber.RepositoryFailure(err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, subscriber.Unexpected(err)
	}
	st, err := subscriber.ParseStatus(status)
	if err != nil {
		return nil, subscriber.Unexpected(fmt.Errorf("stored status %q: %w", status, err))
	}
	s, err := subscriber.Restore(uid, email, name, st)
	if err != nil {
		return nil, subscriber.Unexpected(fmt.Errorf("restore subscriber %s: %w", id, err))
	}
	return s, nil
}

var _ subscriber.Repository = (*SubscriberRepository)(nil)
