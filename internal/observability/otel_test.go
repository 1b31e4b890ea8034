package observability

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	shutdown := InitOTel(context.Background(), l, OtelConfig{Enabled: false})
	assert.NoError(t, shutdown(context.Background()))
}
