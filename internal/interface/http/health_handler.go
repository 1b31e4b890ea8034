package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
	"github.com/oksasatya/newsletter/pkg/response"
)

type subscriberProbe interface {
	FindByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error)
}

type tokenProbe interface {
	FindByToken(ctx context.Context, token string) (*subscriptiontoken.Token, error)
}

// HealthHandler answers liveness unconditionally and readiness by issuing
// one lookup against each repository.
type HealthHandler struct {
	Subscribers subscriberProbe
	Tokens      tokenProbe
	Logger      logrus.FieldLogger
}

func NewHealthHandler(subscribers subscriberProbe, tokens tokenProbe, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{Subscribers: subscribers, Tokens: tokens, Logger: logger}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.Subscribers.FindByID(ctx, uuid.New()); err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "subscriber repository not ready")
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	if _, err := h.Tokens.FindByToken(ctx, "12345"); err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "token repository not ready")
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	c.Status(http.StatusOK)
}
