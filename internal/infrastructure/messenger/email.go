// Package messenger implements subscriber.Messenger on top of the mail
// transports in pkg/mailer.
package messenger

import (
	"context"
	"time"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/pkg/mailer"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
	"github.com/oksasatya/newsletter/pkg/sanitize"
)

// Email renders the message layout and hands it to a mail transport.
type Email struct {
	Sender mailer.Sender
	Brand  mailtpl.Brand
	Now    func() time.Time
}

func NewEmail(sender mailer.Sender, brand mailtpl.Brand) *Email {
	return &Email{Sender: sender, Brand: brand, Now: time.Now}
}

func (m *Email) Send(ctx context.Context, recipient *subscriber.Subscriber, subject, content string) error {
	data := messageData(m.Brand, recipient, subject, content, m.now())
	subj, text, html, err := mailtpl.Render(mailtpl.Message, data)
	if err != nil {
		return subscriber.Unexpected(err)
	}
	return m.Sender.Send(ctx, recipient.Email().String(), subj, text, html)
}

func (m *Email) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func messageData(b mailtpl.Brand, recipient *subscriber.Subscriber, subject, content string, at time.Time) map[string]any {
	return mailtpl.NewMessageData(b,
		recipient.Name().String(),
		recipient.Email().String(),
		subject,
		content,
		mailtpl.WithPlainContent(sanitize.PlainText(content)),
		mailtpl.WithSentAt(at),
	)
}

var _ subscriber.Messenger = (*Email)(nil)
