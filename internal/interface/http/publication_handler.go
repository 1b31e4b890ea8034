package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/newsletter/internal/application"
	"github.com/oksasatya/newsletter/pkg/response"
	"github.com/oksasatya/newsletter/pkg/validation"
)

type Publisher interface {
	Publish(ctx context.Context, title, content string) (application.PublishReport, error)
}

type PublicationHandler struct {
	Svc    Publisher
	Logger logrus.FieldLogger
}

func NewPublicationHandler(svc Publisher, logger logrus.FieldLogger) *PublicationHandler {
	return &PublicationHandler{Svc: svc, Logger: logger}
}

type publishRequest struct {
	Title   string `json:"Title" binding:"required"`
	Content string `json:"Content" binding:"required"`
}

type publishResponse struct {
	IssueID    string `json:"issue_id"`
	Recipients int    `json:"recipients"`
	Delivered  int    `json:"delivered"`
	Failed     int    `json:"failed"`
	ArchivedAt string `json:"archived_at,omitempty"`
}

// Publish fans the newsletter out to every eligible subscriber. Per-recipient
// failures are reported in the body, not through the status code.
func (h *PublicationHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithDetails(c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return
	}

	report, err := h.Svc.Publish(c.Request.Context(), req.Title, req.Content)
	if err != nil {
		logFailure(h.Logger, err, http.StatusInternalServerError, "publish failed")
		response.Abort(c, http.StatusInternalServerError, publicMessage(err))
		return
	}
	response.JSON(c, http.StatusOK, publishResponse{
		IssueID:    report.IssueID.String(),
		Recipients: report.Recipients,
		Delivered:  report.Delivered,
		Failed:     report.Failed,
		ArchivedAt: report.ArchivedAt,
	}, "newsletter published")
}
