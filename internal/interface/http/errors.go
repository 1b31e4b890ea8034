package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
)

// publicMessage returns the top-level domain message of err. Causes such as
// SQL or transport errors never leave the process.
func publicMessage(err error) string {
	var (
		subNotFound *subscriber.NotFoundError
		tokNotFound *subscriptiontoken.NotFoundError
		tokExpired  *subscriptiontoken.ExpiredError
		subErr      *subscriber.Error
		tokErr      *subscriptiontoken.Error
	)
	switch {
	case errors.As(err, &subNotFound):
		return subNotFound.Error()
	case errors.As(err, &tokNotFound):
		return tokNotFound.Error()
	case errors.As(err, &tokExpired):
		return tokExpired.Error()
	case errors.As(err, &subErr):
		return subErr.Kind.Error()
	case errors.As(err, &tokErr):
		return tokErr.Kind.Error()
	}
	for _, known := range []error{
		subscriber.ErrInvalidSubscriberEmail,
		subscriber.ErrInvalidSubscriberName,
		subscriber.ErrInvalidSubscriberStatus,
		subscriber.ErrInvalidSubscriberEmailVerificationStatus,
		subscriber.ErrMultipleSubscribersFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return subscriber.ErrUnexpected.Error()
}

func isValidationError(err error) bool {
	return errors.Is(err, subscriber.ErrInvalidSubscriberEmail) ||
		errors.Is(err, subscriber.ErrInvalidSubscriberName) ||
		errors.Is(err, subscriber.ErrInvalidSubscriberStatus) ||
		errors.Is(err, subscriber.ErrInvalidSubscriberEmailVerificationStatus)
}

func isNotFound(err error) bool {
	return errors.Is(err, subscriber.ErrSubscriberNotFound) ||
		errors.Is(err, subscriptiontoken.ErrSubscriptionTokenNotFound) ||
		errors.Is(err, subscriptiontoken.ErrSubscriptionTokenExpired)
}

func logFailure(logger logrus.FieldLogger, err error, status int, msg string) {
	if logger == nil {
		return
	}
	entry := logger.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
		return
	}
	entry.Info(msg)
}
