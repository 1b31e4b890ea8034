package messenger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/pkg/mailer"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
)

type captured struct {
	to, subject, text, html string
}

type fakeSender struct {
	got []captured
	err error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.got = append(f.got, captured{to, subject, text, html})
	return f.err
}

type fakePublisher struct {
	bodies []any
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.bodies = append(f.bodies, body)
	return nil
}

func newSubscriber(t *testing.T) *subscriber.Subscriber {
	t.Helper()
	s, err := subscriber.Register(uuid.New(), "jane@example.com", "Jane Doe", subscriber.LifecycleConfirmation)
	require.NoError(t, err)
	return s
}

func TestEmailSend(t *testing.T) {
	sender := &fakeSender{}
	m := NewEmail(sender, mailtpl.Brand{AppName: "Weekly"})

	err := m.Send(context.Background(), newSubscriber(t), "Hello", `<p>Click <a href="https://x.test">here</a></p>`)
	require.NoError(t, err)

	require.Len(t, sender.got, 1)
	got := sender.got[0]
	assert.Equal(t, "jane@example.com", got.to)
	assert.Equal(t, "Hello", got.subject)
	assert.Contains(t, got.text, "Click here")
	assert.Contains(t, got.html, `<a href="https://x.test">here</a>`)
}

func TestEmailSendPropagatesTransportError(t *testing.T) {
	boom := errors.New("smtp down")
	m := NewEmail(&fakeSender{err: boom}, mailtpl.Brand{})

	err := m.Send(context.Background(), newSubscriber(t), "Hello", "body")
	assert.ErrorIs(t, err, boom)
}

func TestQueueSend(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, mailtpl.Brand{AppName: "Weekly"})

	require.NoError(t, q.Send(context.Background(), newSubscriber(t), "Hello", "<p>body</p>"))

	require.Len(t, pub.bodies, 1)
	job, ok := pub.bodies[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", job.To)
	assert.Equal(t, mailtpl.Message, job.Template)
	assert.Equal(t, "Hello", job.Data["Subject"])
	assert.Equal(t, "body", job.Data["PlainContent"])
	assert.Equal(t, "Jane Doe", job.Data["Name"])
}

func TestRecording(t *testing.T) {
	r := NewRecording(nil)
	s := newSubscriber(t)

	require.NoError(t, r.Send(context.Background(), s, "one", "a"))
	require.NoError(t, r.Send(context.Background(), s, "two", "b"))

	assert.Len(t, r.Messages(), 2)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Subject)

	r.Fail = func(string) error { return errors.New("nope") }
	assert.Error(t, r.Send(context.Background(), s, "three", "c"))
	assert.Len(t, r.Messages(), 2)
}
