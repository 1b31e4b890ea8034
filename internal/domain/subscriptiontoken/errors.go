package subscriptiontoken

import (
	"errors"
	"fmt"
)

var (
	ErrIssuanceFailed            = errors.New("Failed to issue a subscription token")
	ErrSubscriptionTokenNotFound = errors.New("Subscription token doesn't exist")
	ErrSubscriptionTokenExpired  = errors.New("Subscription token has expired")
	ErrRepositoryOperationFailed = errors.New("Failed to operate on repository")
	ErrUnexpected                = errors.New("Failed unexpectedly")
)

// Error attaches a cause to a kind error; the message is the kind's only.
type Error struct {
	Kind  error
	Cause error
}

func (e *Error) Error() string { return e.Kind.Error() }

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func IssuanceFailure(cause error) error {
	return &Error{Kind: ErrIssuanceFailed, Cause: cause}
}

func RepositoryFailure(cause error) error {
	return &Error{Kind: ErrRepositoryOperationFailed, Cause: cause}
}

func Unexpected(cause error) error {
	return &Error{Kind: ErrUnexpected, Cause: cause}
}

// NotFoundError names the token that could not be found.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Subscription token %s doesn't exist", e.Token)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrSubscriptionTokenNotFound }

func NotFound(token string) error { return &NotFoundError{Token: token} }

// ExpiredError names a token presented after its expiry.
type ExpiredError struct {
	Token string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("Subscription token %s has expired", e.Token)
}

func (e *ExpiredError) Is(target error) bool { return target == ErrSubscriptionTokenExpired }
