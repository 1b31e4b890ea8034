package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/newsletter/internal/interface/http"
	"github.com/oksasatya/newsletter/internal/interface/middleware"
)

// RateLimitConfig is the per-IP budget for the public subscription routes.
type RateLimitConfig struct {
	Max          int
	Window       time.Duration
	AllowPrivate bool
}

type SubscriptionModule struct {
	Handler   *handlers.SubscriptionHandler
	Redis     *redis.Client
	RateLimit RateLimitConfig
}

func NewSubscriptionModule(h *handlers.SubscriptionHandler, rdb *redis.Client, rl RateLimitConfig) *SubscriptionModule {
	return &SubscriptionModule{Handler: h, Redis: rdb, RateLimit: rl}
}

func (m *SubscriptionModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if m.RateLimit.AllowPrivate {
		allow = middleware.AllowPrivateIP()
	}
	rl := middleware.RateLimit(m.Redis, m.RateLimit.Max, m.RateLimit.Window, middleware.KeyByIPAndPath(), allow)

	sub := rg.Group("/subscription")
	{
		sub.POST("/subscribe", rl, m.Handler.Subscribe)
		sub.GET("/confirm", rl, m.Handler.Confirm)

		sub.POST("/command/subscribe/execute", rl, m.Handler.Subscribe)
		sub.POST("/command/confirm/execute", rl, m.Handler.Confirm)

		sub.GET("/query/inquire-confirmed-subscribers/read", m.Handler.ConfirmedSubscribers)
		sub.GET("/query/inquire-all-subscribers/read", m.Handler.AllSubscribers)
		sub.GET("/query/inquire-subscriber/read", m.Handler.Subscriber)
		if m.Handler.Searcher != nil {
			sub.GET("/query/search-subscribers/read", m.Handler.Search)
		}
	}

	// Confirmation links are written as /subscriptions/confirm.
	rg.GET("/subscriptions/confirm", rl, m.Handler.Confirm)
}
