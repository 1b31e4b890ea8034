package messenger

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
)

// Sent is one message captured by Recording.
type Sent struct {
	To      string
	Name    string
	Subject string
	Content string
}

// Recording keeps every message in memory instead of delivering it. It backs
// the "log" messenger driver and the tests. Fail, when set, decides per
// recipient whether Send returns an error.
type Recording struct {
	Logger logrus.FieldLogger
	Fail   func(to string) error

	mu   sync.Mutex
	sent []Sent
}

func NewRecording(logger logrus.FieldLogger) *Recording {
	return &Recording{Logger: logger}
}

func (r *Recording) Send(ctx context.Context, recipient *subscriber.Subscriber, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := recipient.Email().String()
	if r.Fail != nil {
		if err := r.Fail(to); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.sent = append(r.sent, Sent{To: to, Name: recipient.Name().String(), Subject: subject, Content: content})
	r.mu.Unlock()

	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("message recorded")
	}
	return nil
}

// Messages returns a copy of what was sent so far.
func (r *Recording) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent message and whether there was one.
func (r *Recording) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

var _ subscriber.Messenger = (*Recording)(nil)
