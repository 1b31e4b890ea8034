package templates

import "time"

// Brand carries the sender-side details printed in every email footer.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	UnsubscribeURL string
}

// Option pattern
type Option func(*EmailData)

func WithPlainContent(text string) Option { return func(d *EmailData) { d.PlainContent = text } }

func WithSentAt(t time.Time) Option {
	return func(d *EmailData) { d.SentAt = t.UTC().Format("02 January 2006, 15:04") }
}

// NewMessageData fills the layout fields for one recipient.
func NewMessageData(b Brand, name, email, subject, content string, opts ...Option) map[string]any {
	d := EmailData{
		Name:           name,
		Email:          email,
		Subject:        subject,
		Content:        content,
		PlainContent:   content,
		AppName:        b.AppName,
		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		LogoURL:        b.LogoURL,
		SupportURL:     b.SupportURL,
		UnsubscribeURL: b.UnsubscribeURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
