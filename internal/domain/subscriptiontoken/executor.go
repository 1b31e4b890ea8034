package subscriptiontoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// IssueSubscriptionToken issues a token for SubscriberID. An empty Token
// gets a generated value.
type IssueSubscriptionToken struct {
	Token        string
	SubscriberID uuid.UUID
}

type CommandExecutor struct {
	Repo Repository
	Now  func() time.Time
}

func NewCommandExecutor(repo Repository) *CommandExecutor {
	return &CommandExecutor{Repo: repo, Now: time.Now}
}

// Issue persists a new token and returns it.
func (e *CommandExecutor) Issue(ctx context.Context, cmd IssueSubscriptionToken) (*Token, error) {
	if cmd.SubscriberID == uuid.Nil {
		return nil, IssuanceFailure(errors.New("missing subscriber id"))
	}
	t := Issue(cmd.SubscriberID, e.now())
	if cmd.Token != "" {
		t = New(cmd.Token, cmd.SubscriberID, e.now())
	}
	if err := e.Repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *CommandExecutor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
