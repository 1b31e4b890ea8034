package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/newsletter/internal/interface/http"
	"github.com/oksasatya/newsletter/internal/interface/middleware"
	"github.com/oksasatya/newsletter/pkg/helpers"
)

type PublicationModule struct {
	Handler *handlers.PublicationHandler
	// JWT is nil when publishing is unauthenticated.
	JWT *helpers.JWTManager
}

func NewPublicationModule(h *handlers.PublicationHandler, jwt *helpers.JWTManager) *PublicationModule {
	return &PublicationModule{Handler: h, JWT: jwt}
}

func (m *PublicationModule) Register(rg *gin.RouterGroup) {
	pub := rg.Group("/publication")
	pub.Use(middleware.PublisherAuth(m.JWT))
	{
		pub.POST("/publish", m.Handler.Publish)
	}
}
