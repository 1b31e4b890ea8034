package subscriber

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Messages are returned verbatim to API clients.
var (
	ErrInvalidSubscriberEmail                   = errors.New("Subscriber's email is invalid")
	ErrInvalidSubscriberName                    = errors.New("Subscriber's name is invalid")
	ErrInvalidSubscriberStatus                  = errors.New("Subscriber's status is invalid")
	ErrInvalidSubscriberEmailVerificationStatus = errors.New("Subscriber's email verification status is invalid")
	ErrSubscriberNotFound                       = errors.New("Subscriber doesn't exist")
	ErrMultipleSubscribersFound                 = errors.New("Multiple subscribers found")
	ErrRepositoryOperationFailed                = errors.New("Failed to operate on repository")
	ErrMessengerOperationFailed                 = errors.New("Failed to send a message through messenger")
	ErrUnexpected                               = errors.New("Failed unexpectedly")
)

// Error attaches an underlying cause to one of the kind errors above.
// Its message is the kind's message only.
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

func RepositoryFailure(cause error) error {
	return &Error{Kind: ErrRepositoryOperationFailed, Cause: cause}
}

func MessengerFailure(cause error) error {
	return &Error{Kind: ErrMessengerOperationFailed, Cause: cause}
}

func Unexpected(cause error) error {
	return &Error{Kind: ErrUnexpected, Cause: cause}
}

// NotFoundError is raised by callers that require a subscriber to exist.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Subscriber (ID: %s) doesn't exist", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrSubscriberNotFound }

func NotFound(id uuid.UUID) error { return &NotFoundError{ID: id} }

// IsDomainError reports whether err already belongs to this package's taxonomy.
func IsDomainError(err error) bool {
	var kindErr *Error
	if errors.As(err, &kindErr) {
		return true
	}
	for _, known := range []error{
		ErrInvalidSubscriberEmail,
		ErrInvalidSubscriberName,
		ErrInvalidSubscriberStatus,
		ErrInvalidSubscriberEmailVerificationStatus,
		ErrSubscriberNotFound,
		ErrMultipleSubscribersFound,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
