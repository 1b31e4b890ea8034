package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oksasatya/newsletter/internal/metrics"
)

// MetricsModule exposes the Prometheus registry at /metrics.
type MetricsModule struct {
	Gatherer prometheus.Gatherer
}

func NewMetricsModule(g prometheus.Gatherer) *MetricsModule { return &MetricsModule{Gatherer: g} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/metrics", gin.WrapH(metrics.Handler(m.Gatherer)))
}
