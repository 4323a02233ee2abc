package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fleetrecon/internal/handler"
	"fleetrecon/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CycleHandler        *handler.CycleHandler
	LedgerHandler       *handler.LedgerHandler
	PendingOrderHandler *handler.PendingOrderHandler
	// RedisClient backs Idempotency-Key replay; nil disables it.
	RedisClient redis.Cmdable
	NewRelicApp *newrelic.Application
	Registry    *prometheus.Registry
	Logger      zerolog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		cycles := v1.Group("/cycles")
		{
			cycles.POST("", middleware.IdempotencyMiddleware(deps.RedisClient), deps.CycleHandler.Run)
			cycles.GET("/last", deps.CycleHandler.Last)
		}

		ledgers := v1.Group("/ledgers")
		{
			ledgers.GET("", deps.LedgerHandler.GetAll)
			ledgers.GET("/:driver_id", deps.LedgerHandler.Get)
		}

		v1.GET("/orders/pending", deps.PendingOrderHandler.GetAll)
	}

	return router
}
