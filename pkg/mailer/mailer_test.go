package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAPISend(t *testing.T) {
	var got httpAPIRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := NewHTTPAPI(srv.URL+"/", "news@acme.test", "secret", time.Second)
	err := api.Send(context.Background(), "jane@example.com", "Hi", "plain", "<p>rich</p>")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "news@acme.test", got.From)
	assert.Equal(t, "jane@example.com", got.To)
	assert.Equal(t, "Hi", got.Subject)
	assert.Equal(t, "<p>rich</p>", got.Content)
	assert.Equal(t, "plain", got.TextBody)
}

func TestHTTPAPISendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	api := NewHTTPAPI(srv.URL, "news@acme.test", "", time.Second)
	err := api.Send(context.Background(), "jane@example.com", "Hi", "plain", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

type fakeSES struct {
	in *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSend(t *testing.T) {
	client := &fakeSES{}
	s := NewSES(client, "news@acme.test")
	s.ConfigurationSet = "newsletter"

	require.NoError(t, s.Send(context.Background(), "jane@example.com", "Hi", "plain", "<p>rich</p>"))

	in := client.in
	require.NotNil(t, in)
	assert.Equal(t, "news@acme.test", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"jane@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>rich</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "newsletter", aws.ToString(in.ConfigurationSetName))
}

func TestSESWithoutClient(t *testing.T) {
	s := &SES{From: "news@acme.test"}
	assert.Error(t, s.Send(context.Background(), "jane@example.com", "Hi", "plain", ""))
}
