package subscriptiontoken

import (
	"time"

	"github.com/google/uuid"
)

// Lifetime is how long a token stays usable after issuance.
const Lifetime = time.Hour

// Token links an opaque value to exactly one subscriber.
type Token struct {
	Token        string
	SubscriberID uuid.UUID
	IssuedAt     time.Time
	ExpiredAt    time.Time
}

// Generate returns a fresh random token value.
func Generate() string { return uuid.NewString() }

// New builds a token issued at now.
func New(token string, subscriberID uuid.UUID, now time.Time) *Token {
	now = now.UTC()
	return &Token{
		Token:        token,
		SubscriberID: subscriberID,
		IssuedAt:     now,
		ExpiredAt:    now.Add(Lifetime),
	}
}

// Issue builds a token with a generated value.
func Issue(subscriberID uuid.UUID, now time.Time) *Token {
	return New(Generate(), subscriberID, now)
}

// Expired reports whether the token can no longer be presented at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiredAt)
}

// CheckUsable returns an ExpiredError when the token is past its expiry.
func (t *Token) CheckUsable(now time.Time) error {
	if t.Expired(now) {
		return &ExpiredError{Token: t.Token}
	}
	return nil
}
