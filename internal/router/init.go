package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oksasatya/newsletter/internal/container"
	handlers "github.com/oksasatya/newsletter/internal/interface/http"
	"github.com/oksasatya/newsletter/internal/interface/middleware"
	"github.com/oksasatya/newsletter/internal/router/modules"
)

// NewEngine builds the gin engine with the global middleware chain and every
// module mounted.
func NewEngine(c *container.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.AppName))
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(c.Logger))
	}
	if c.Registry != nil {
		r.Use(middleware.Metrics(c.Metrics))
	}

	reg := NewRegistry(r, "/")
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

// InitModules builds the handlers from the container and adds their modules
// to the registry. Call once during startup.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	subs := handlers.NewSubscriptionHandler(c.Subscriptions, c.SubscriberReader, c.Logger)
	if c.Search != nil {
		subs.Searcher = c.Search
	}
	r.Add(modules.NewSubscriptionModule(subs, c.Redis, modules.RateLimitConfig{
		Max:          cfg.RateLimitMax,
		Window:       cfg.RateLimitWindow,
		AllowPrivate: cfg.RateLimitAllowPrivate,
	}))

	r.Add(modules.NewPublicationModule(handlers.NewPublicationHandler(c.Publications, c.Logger), c.JWT))
	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(c.SubscriberRepo, c.TokenRepo, c.Logger)))

	if c.Registry != nil {
		r.Add(modules.NewMetricsModule(c.Registry))
	}
}
