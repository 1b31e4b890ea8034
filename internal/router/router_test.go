package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/newsletter/config"
	"github.com/oksasatya/newsletter/internal/container"
	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/infrastructure/messenger"
	"github.com/oksasatya/newsletter/internal/router"
	"github.com/oksasatya/newsletter/pkg/helpers"
	"github.com/oksasatya/newsletter/pkg/validation"
)

type app struct {
	c         *container.Container
	engine    *gin.Engine
	messenger *messenger.Recording
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:            "newsletter",
		Env:                "test",
		Port:               "8080",
		ExposingAddress:    "http://localhost:8080",
		Lifecycle:          "confirmation",
		StorageDriver:      container.DriverMemory,
		MessengerDriver:    container.MessengerLog,
		RateLimitMax:       30,
		RateLimitWindow:    time.Minute,
		PublisherJWTTTL:    time.Hour,
		MetricsEnabled:     true,
		CORSAllowedOrigins: "http://localhost:3000",
	}
}

func newApp(t *testing.T, mutate ...func(*config.Config)) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	c, err := container.Build(context.Background(), cfg, helpers.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rec, ok := c.Messenger.(*messenger.Recording)
	require.True(t, ok)
	return &app{c: c, engine: router.NewEngine(c), messenger: rec}
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// subscribe posts the form, leaving out empty values.
func (a *app) subscribe(email, name string) *httptest.ResponseRecorder {
	form := url.Values{}
	if email != "" {
		form.Set("email", email)
	}
	if name != "" {
		form.Set("name", name)
	}
	return a.subscribeRaw(form.Encode())
}

func (a *app) subscribeRaw(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/subscription/subscribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *app) confirm(path, token string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path+"?token="+url.QueryEscape(token), nil))
}

func (a *app) publish(title, content, bearer string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"Title": title, "Content": content})
	req := httptest.NewRequest(http.MethodPost, "/publication/publish", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return a.do(req)
}

// tokenFromLink pulls the token out of the last confirmation message.
func (a *app) tokenFromLink(t *testing.T) string {
	t.Helper()
	msg, ok := a.messenger.Last()
	require.True(t, ok)
	_, rest, found := strings.Cut(msg.Content, "token=")
	require.True(t, found)
	token, _, _ := strings.Cut(rest, `"`)
	unescaped, err := url.QueryUnescape(token)
	require.NoError(t, err)
	return unescaped
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Details   map[string]any  `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSubscribeConfirmPublishScenario(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	w := a.subscribe("a@example.com", "Alice")
	require.Equal(t, http.StatusCreated, w.Code)

	s, err := a.c.SubscriberRepo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, subscriber.StatusUnconfirmed, s.Status())

	w = a.confirm("/subscription/confirm", a.tokenFromLink(t))
	require.Equal(t, http.StatusOK, w.Code)

	s, err = a.c.SubscriberRepo.FindByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, subscriber.StatusConfirmed, s.Status())

	before := len(a.messenger.Messages())
	w = a.publish("Weekly", "<p>News</p>", "")
	require.Equal(t, http.StatusOK, w.Code)

	msgs := a.messenger.Messages()[before:]
	require.Len(t, msgs, 1)
	assert.Equal(t, "a@example.com", msgs[0].To)
	assert.Equal(t, "Weekly", msgs[0].Subject)
}

func TestSubscribeStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		sender string
		want   int
		error  string
	}{
		{"created", "ada@example.com", "Ada Lovelace", http.StatusCreated, ""},
		{"invalid email", "not-an-email", "Ada Lovelace", http.StatusBadRequest, "Subscriber's email is invalid"},
		{"invalid name", "ada@example.com", "<x>", http.StatusBadRequest, "Subscriber's name is invalid"},
		{"missing name", "ada@example.com", "", http.StatusUnprocessableEntity, "invalid payload"},
		{"missing email", "", "Ada Lovelace", http.StatusUnprocessableEntity, "invalid payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t)
			w := a.subscribe(tt.email, tt.sender)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.error, decode(t, w).Error)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSubscribeEmptyFields(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  int
		error string
	}{
		{"empty email", "email=&name=Ada+Lovelace", http.StatusBadRequest, "Subscriber's email is invalid"},
		{"empty name", "email=ada%40example.com&name=", http.StatusBadRequest, "Subscriber's name is invalid"},
		{"blank name", "email=ada%40example.com&name=++", http.StatusBadRequest, "Subscriber's name is invalid"},
		{"absent name", "email=ada%40example.com", http.StatusUnprocessableEntity, "invalid payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t)
			w := a.subscribeRaw(tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.error, decode(t, w).Error)
		})
	}
}

func TestSubscribeDuplicateEmail(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusCreated, a.subscribe("ada@example.com", "Ada Lovelace").Code)

	w := a.subscribe("ada@example.com", "Ada Again")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Subscriber's email is invalid", decode(t, w).Error)
}

func TestSubscribeMessengerFailure(t *testing.T) {
	a := newApp(t)
	a.messenger.Fail = func(string) error { return assert.AnError }

	w := a.subscribe("ada@example.com", "Ada Lovelace")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, "Failed to send a message through messenger", env.Error)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestConfirmStatusCodes(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusCreated, a.subscribe("ada@example.com", "Ada Lovelace").Code)
	token := a.tokenFromLink(t)

	t.Run("unknown token", func(t *testing.T) {
		w := a.confirm("/subscription/confirm", "12345")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Subscription token 12345 doesn't exist"}`, w.Body.String())

		all, err := a.c.SubscriberRepo.FindByStatus(context.Background(), subscriber.StatusConfirmed)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("missing token", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/confirm", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("link alias confirms", func(t *testing.T) {
		w := a.confirm("/subscriptions/confirm", token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("confirming again is accepted", func(t *testing.T) {
		w := a.confirm("/subscription/confirm", token)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCommandAliasRoutes(t *testing.T) {
	a := newApp(t)
	form := url.Values{"email": {"ada@example.com"}, "name": {"Ada Lovelace"}}
	req := httptest.NewRequest(http.MethodPost, "/subscription/command/subscribe/execute", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, a.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/subscription/command/confirm/execute?token="+url.QueryEscape(a.tokenFromLink(t)), nil)
	assert.Equal(t, http.StatusOK, a.do(req).Code)
}

func TestQueryRoutes(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusCreated, a.subscribe("ada@example.com", "Ada Lovelace").Code)
	require.Equal(t, http.StatusOK, a.confirm("/subscription/confirm", a.tokenFromLink(t)).Code)
	require.Equal(t, http.StatusCreated, a.subscribe("grace@example.com", "Grace Hopper").Code)

	t.Run("confirmed subscribers", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/inquire-confirmed-subscribers/read", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var got []map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, []map[string]string{{"Name": "Ada Lovelace", "Email": "ada@example.com"}}, got)
	})

	t.Run("all subscribers", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/inquire-all-subscribers/read", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var got []map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "confirmed", got[0]["Status"])
		assert.Equal(t, "unconfirmed", got[1]["Status"])
	})

	t.Run("one subscriber", func(t *testing.T) {
		s, err := a.c.SubscriberRepo.FindByEmail(context.Background(), "grace@example.com")
		require.NoError(t, err)
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/inquire-subscriber/read?id="+s.ID().String(), nil))
		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, s.ID().String(), got["ID"])
		assert.Equal(t, "Grace Hopper", got["Name"])
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/inquire-subscriber/read?id="+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/inquire-subscriber/read?id=nope", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("search is not mounted without elasticsearch", func(t *testing.T) {
		w := a.do(httptest.NewRequest(http.MethodGet, "/subscription/query/search-subscribers/read?q=ada", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPublishValidation(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodPost, "/publication/publish", strings.NewReader(`{"Title": "only a title"}`))
	req.Header.Set("Content-Type", "application/json")
	w := a.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "is required", decode(t, w).Details["Content"])

	req = httptest.NewRequest(http.MethodPost, "/publication/publish", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(req).Code)
}

func TestPublishRequiresPublisherToken(t *testing.T) {
	a := newApp(t, func(c *config.Config) { c.PublisherJWTSecret = "test-secret" })
	require.NotNil(t, a.c.JWT)

	assert.Equal(t, http.StatusUnauthorized, a.publish("Weekly", "content", "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.publish("Weekly", "content", "garbage").Code)

	other := helpers.NewJWTManager("test-secret", time.Hour, "newsletter")
	wrongSubject, _, err := other.Generate("someone-else")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, a.publish("Weekly", "content", wrongSubject).Code)

	token, _, err := a.c.JWT.Generate(helpers.PublisherSubject)
	require.NoError(t, err)
	w := a.publish("Weekly", "content", token)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		IssueID    string `json:"issue_id"`
		Recipients int    `json:"recipients"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.NotEmpty(t, data.IssueID)
	assert.Zero(t, data.Recipients)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusOK, a.do(httptest.NewRequest(http.MethodGet, "/health/liveness", nil)).Code)
	assert.Equal(t, http.StatusOK, a.do(httptest.NewRequest(http.MethodGet, "/health/readiness", nil)).Code)

	require.Equal(t, http.StatusCreated, a.subscribe("ada@example.com", "Ada Lovelace").Code)
	w := a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `newsletter_registrations_total{outcome="success"} 1`)
	assert.Contains(t, body, `newsletter_http_request_duration_seconds_count{method="POST",route="/subscription/subscribe",status="201"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	a := newApp(t, func(c *config.Config) { c.MetricsEnabled = false })
	assert.Equal(t, http.StatusNotFound, a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	a := newApp(t)
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health/liveness", nil)
	req.Header.Set("X-Request-ID", id)
	w := a.do(req)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/subscription/subscribe", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := a.do(req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
