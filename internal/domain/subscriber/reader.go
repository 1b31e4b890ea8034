package subscriber

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Query is one of the read-only subscriber queries below.
type Query interface{ isQuery() }

type InquirySubscriber struct {
	ID uuid.UUID
}

type InquiryAllSubscribers struct{}

// InquireConfirmedSubscribers lists subscribers eligible for newsletters.
type InquireConfirmedSubscribers struct{}

func (InquirySubscriber) isQuery()           {}
func (InquiryAllSubscribers) isQuery()       {}
func (InquireConfirmedSubscribers) isQuery() {}

// QueryResult holds either a single subscriber or a list.
type QueryResult struct {
	single   *Subscriber
	multiple []*Subscriber
	isList   bool
}

func Single(s *Subscriber) QueryResult { return QueryResult{single: s} }

func Multiple(list []*Subscriber) QueryResult { return QueryResult{multiple: list, isList: true} }

func (r QueryResult) IsMultiple() bool { return r.isList }

// Subscriber converts the result to one subscriber. A list result fails with
// ErrMultipleSubscribersFound.
func (r QueryResult) Subscriber() (*Subscriber, error) {
	if r.IsMultiple() {
		return nil, ErrMultipleSubscribersFound
	}
	return r.single, nil
}

// Subscribers converts the result to a list; a single result becomes a
// one-element list.
func (r QueryResult) Subscribers() []*Subscriber {
	if r.IsMultiple() {
		return r.multiple
	}
	if r.single == nil {
		return nil
	}
	return []*Subscriber{r.single}
}

// QueryReader dispatches queries to exactly one repository read each.
type QueryReader struct {
	Repo      Repository
	Lifecycle Lifecycle
}

func NewQueryReader(repo Repository, lifecycle Lifecycle) *QueryReader {
	if lifecycle == "" {
		lifecycle = LifecycleConfirmation
	}
	return &QueryReader{Repo: repo, Lifecycle: lifecycle}
}

func (r *QueryReader) Read(ctx context.Context, q Query) (QueryResult, error) {
	switch c := q.(type) {
	case InquirySubscriber:
		s, err := r.Repo.FindByID(ctx, c.ID)
		if err != nil {
			return QueryResult{}, err
		}
		if s == nil {
			return QueryResult{}, NotFound(c.ID)
		}
		return Single(s), nil
	case InquiryAllSubscribers:
		list, err := r.Repo.FindAll(ctx)
		if err != nil {
			return QueryResult{}, err
		}
		return Multiple(list), nil
	case InquireConfirmedSubscribers:
		list, err := r.Repo.FindByStatus(ctx, r.Lifecycle.EligibleStatus())
		if err != nil {
			return QueryResult{}, err
		}
		return Multiple(list), nil
	default:
		return QueryResult{}, Unexpected(fmt.Errorf("unsupported query %T", q))
	}
}
