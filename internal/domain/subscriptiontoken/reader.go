package subscriptiontoken

import "context"

type InquireSubscriptionTokenByToken struct {
	Token string
}

type QueryReader struct {
	Repo Repository
}

func NewQueryReader(repo Repository) *QueryReader {
	return &QueryReader{Repo: repo}
}

// Read returns the token or a NotFoundError.
func (r *QueryReader) Read(ctx context.Context, q InquireSubscriptionTokenByToken) (*Token, error) {
	t, err := r.Repo.FindByToken(ctx, q.Token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NotFound(q.Token)
	}
	return t, nil
}
