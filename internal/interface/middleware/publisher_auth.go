package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/newsletter/pkg/helpers"
	"github.com/oksasatya/newsletter/pkg/response"
)

const CtxPublisherKey = "publisher"

// PublisherAuth requires an "Authorization: Bearer <token>" header holding a
// token issued for the publisher subject. A nil manager disables the check.
func PublisherAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	if jwt == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := jwt.Parse(strings.TrimSpace(token))
		if err != nil || claims.Subject != helpers.PublisherSubject {
			response.Abort(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		c.Set(CtxPublisherKey, claims.Subject)
		c.Next()
	}
}
