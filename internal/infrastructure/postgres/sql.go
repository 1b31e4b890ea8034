package postgres

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	tableSubscribers        = "subscribers"
	tableSubscriptionTokens = "subscription_tokens"

	colID           = "id"
	colEmail        = "email"
	colName         = "name"
	colStatus       = "status"
	colCreatedAt    = "created_at"
	colUpdatedAt    = "updated_at"
	colToken        = "token"
	colSubscriberID = "subscriber_id"
	colIssuedAt     = "issued_at"
	colExpiredAt    = "expired_at"

	pgUniqueViolation = "23505"
	subscribersPKey   = "subscribers_pkey"
)

var dialect = goqu.Dialect("postgres")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// violatesUnique reports a unique violation of the named constraint.
func violatesUnique(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
