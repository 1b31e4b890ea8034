package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope for successful non-list responses.
type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request. Error carries the
// top-level message only, never an internal cause. Details is set for
// validation failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
	}
}

func Error(message string, details any) ErrorResponse {
	return ErrorResponse{Error: message, Details: details}
}

// JSON writes a success envelope.
func JSON[T any](ctx *gin.Context, status int, data T, message string) {
	resp := Success(ctx, status, data, message)
	ctx.JSON(resp.Status, resp)
}

// Abort writes an error body and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string) {
	AbortWithDetails(ctx, status, message, nil)
}

func AbortWithDetails(ctx *gin.Context, status int, message string, details any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, Error(message, details))
}
