package mailer

import "context"

// Sender delivers one email. html is optional.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}
