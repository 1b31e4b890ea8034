package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/application"
	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/infrastructure/events"
	"github.com/oksasatya/newsletter/pkg/response"
	"github.com/oksasatya/newsletter/pkg/validation"
)

// Subscriptions is the registration and confirmation use case.
type Subscriptions interface {
	Subscribe(ctx context.Context, email, name string) (uuid.UUID, error)
	Confirm(ctx context.Context, token string) error
}

// SubscriberSearcher is the optional full-text lookup over the projection.
type SubscriberSearcher interface {
	Search(ctx context.Context, q string, size int) ([]events.SubscriberDocument, error)
}

type SubscriptionHandler struct {
	Svc      Subscriptions
	Reader   application.SubscriberReader
	Searcher SubscriberSearcher
	Logger   logrus.FieldLogger
}

func NewSubscriptionHandler(svc Subscriptions, reader application.SubscriberReader, logger logrus.FieldLogger) *SubscriptionHandler {
	return &SubscriptionHandler{Svc: svc, Reader: reader, Logger: logger}
}

// subscribeRequest uses pointers so that an absent field fails binding while
// a present but empty one reaches the domain and is rejected there.
type subscribeRequest struct {
	Email *string `form:"email" json:"email" binding:"required"`
	Name  *string `form:"name" json:"name" binding:"required"`
}

// ConfirmedSubscriber is one row of the confirmed-subscribers listing.
type ConfirmedSubscriber struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

// SubscriberView is the full read model of one subscriber.
type SubscriberView struct {
	ID     string `json:"ID"`
	Name   string `json:"Name"`
	Email  string `json:"Email"`
	Status string `json:"Status"`
}

// Subscribe registers the subscriber from a form body and sends the
// confirmation message.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.AbortWithDetails(c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return
	}

	id, err := h.Svc.Subscribe(c.Request.Context(), *req.Email, *req.Name)
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		logFailure(h.Logger, err, status, "subscribe failed")
		response.Abort(c, status, publicMessage(err))
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"id": id}, "subscription created")
}

func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.AbortWithDetails(c, http.StatusBadRequest, "invalid payload", map[string]string{"token": "is required"})
		return
	}

	if err := h.Svc.Confirm(c.Request.Context(), token); err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		logFailure(h.Logger, err, status, "confirm failed")
		response.Abort(c, status, publicMessage(err))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"confirmed": true}, "subscription confirmed")
}

// ConfirmedSubscribers returns a bare JSON array of {Name, Email}.
func (h *SubscriptionHandler) ConfirmedSubscribers(c *gin.Context) {
	result, err := h.Reader.Read(c.Request.Context(), subscriber.InquireConfirmedSubscribers{})
	if err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "list confirmed subscribers failed")
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	list := result.Subscribers()
	out := make([]ConfirmedSubscriber, 0, len(list))
	for _, s := range list {
		out = append(out, ConfirmedSubscriber{Name: s.Name().String(), Email: s.Email().String()})
	}
	c.JSON(http.StatusOK, out)
}

func (h *SubscriptionHandler) AllSubscribers(c *gin.Context) {
	result, err := h.Reader.Read(c.Request.Context(), subscriber.InquiryAllSubscribers{})
	if err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "list subscribers failed")
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	list := result.Subscribers()
	out := make([]SubscriberView, 0, len(list))
	for _, s := range list {
		out = append(out, view(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *SubscriptionHandler) Subscriber(c *gin.Context) {
	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		response.AbortWithDetails(c, http.StatusBadRequest, "invalid payload", map[string]string{"id": "must be a valid UUID"})
		return
	}
	result, err := h.Reader.Read(c.Request.Context(), subscriber.InquirySubscriber{ID: id})
	if err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		logFailure(h.Logger, err, status, "read subscriber failed")
		response.Abort(c, status, publicMessage(err))
		return
	}
	s, err := result.Subscriber()
	if err != nil {
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	c.JSON(http.StatusOK, view(s))
}

// Search is registered only when a searcher is configured.
func (h *SubscriptionHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.AbortWithDetails(c, http.StatusBadRequest, "invalid payload", map[string]string{"q": "is required"})
		return
	}
	docs, err := h.Searcher.Search(c.Request.Context(), q, 10)
	if err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "search subscribers failed")
		response.Abort(c, http.StatusInternalServerError, subscriber.ErrRepositoryOperationFailed.Error())
		return
	}
	out := make([]SubscriberView, 0, len(docs))
	for _, d := range docs {
		out = append(out, SubscriberView{ID: d.ID, Name: d.Name, Email: d.Email, Status: d.Status})
	}
	c.JSON(http.StatusOK, out)
}

func view(s *subscriber.Subscriber) SubscriberView {
	return SubscriberView{
		ID:     s.ID().String(),
		Name:   s.Name().String(),
		Email:  s.Email().String(),
		Status: string(s.Status()),
	}
}
