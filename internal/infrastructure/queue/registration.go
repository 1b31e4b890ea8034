// Package queue feeds subscriber registrations arriving on message queues
// into the subscriber command executor.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedMessage marks a body that cannot become a RegisterSubscriber.
var ErrMalformedMessage = errors.New("malformed registration message")

// Commands executes subscriber commands.
type Commands interface {
	Execute(ctx context.Context, cmd subscriber.Command) error
}

// RegistrationMessage is the body producers put on the queue.
type RegistrationMessage struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func decodeRegistration(body []byte) (subscriber.RegisterSubscriber, error) {
	var msg RegistrationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return subscriber.RegisterSubscriber{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	id, err := uuid.Parse(msg.ID)
	if err != nil {
		return subscriber.RegisterSubscriber{}, fmt.Errorf("%w: id: %v", ErrMalformedMessage, err)
	}
	return subscriber.RegisterSubscriber{ID: id, Email: msg.Email, Name: msg.Name}, nil
}

// register decodes body and runs the registration.
func register(ctx context.Context, commands Commands, body []byte) (subscriber.RegisterSubscriber, error) {
	cmd, err := decodeRegistration(body)
	if err != nil {
		return cmd, err
	}
	return cmd, commands.Execute(ctx, cmd)
}

// permanent reports whether redelivering the same body can never succeed.
func permanent(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, subscriber.ErrInvalidSubscriberEmail) ||
		errors.Is(err, subscriber.ErrInvalidSubscriberName)
}
