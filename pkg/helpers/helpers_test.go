package helpers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "newsletter")

	token, exp, err := m.Generate(PublisherSubject)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, PublisherSubject, claims.Subject)
	assert.Equal(t, "newsletter", claims.Issuer)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTManager("other", time.Hour, "newsletter").Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewJWTManager("secret", -time.Minute, "newsletter")
		stale, _, err := old.Generate(PublisherSubject)
		require.NoError(t, err)
		_, err = m.Parse(stale)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.Error(t, err)
	})
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	LogError(logger, "send failed", errors.New("boom"), logrus.Fields{"to": "a@example.com"})

	out := buf.String()
	assert.Contains(t, out, `"msg":"send failed"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"to":"a@example.com"`)
}

func TestNewLogger(t *testing.T) {
	dev := NewLogger("newsletter", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogger("newsletter", "production")
	assert.Equal(t, logrus.InfoLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestRedisJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	type entry struct {
		Token string `json:"token"`
	}

	require.NoError(t, RedisSetJSON(ctx, rdb, "k", entry{Token: "abc"}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var got entry
	found, err := RedisGetJSON(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", got.Token)

	found, err = RedisGetJSON(ctx, rdb, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Error(t, RedisSetJSON(ctx, rdb, "k", entry{}, 0))

	require.NoError(t, mr.Set("broken", "{"))
	_, err = RedisGetJSON(ctx, rdb, "broken", &got)
	assert.Error(t, err)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisOptions{Addr: addr, DialTimeout: time.Second})
	assert.Error(t, err)
}

func TestGCSObjectURI(t *testing.T) {
	assert.Equal(t, "gs://archive/newsletters/1.html", GCSObjectURI("archive", "newsletters/1.html"))
}
