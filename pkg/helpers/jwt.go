package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PublisherSubject is the subject of tokens allowed to publish newsletters.
const PublisherSubject = "publisher"

// JWTManager issues and validates HS256 tokens.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

func NewJWTManager(secret string, ttl time.Duration, issuer string) *JWTManager {
	return &JWTManager{Secret: []byte(secret), TTL: ttl, Issuer: issuer}
}

type Claims = jwt.RegisteredClaims

// Generate signs a token for subject valid for the manager's TTL.
func (m *JWTManager) Generate(subject string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	claims := &Claims{
		Subject:   subject,
		Issuer:    m.Issuer,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
