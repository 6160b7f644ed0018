package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recorrente/recorrente/internal/api/cron"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/types"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Billing *cron.BillingHandler
}

// NewRouter builds the gin engine with the cron surface mounted
func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestContext())
	router.Use(requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cronGroup := router.Group("/cron")
	{
		billing := cronGroup.Group("/billing")
		{
			billing.POST("/charges", handlers.Billing.RunDueItemPass)
			billing.POST("/reconciliation", handlers.Billing.RunReconciliationPass)
			billing.POST("/reconciliation/:charge_id", handlers.Billing.ReconcileCharge)
		}
	}

	return router
}

// requestContext seeds the request-scoped ids from headers, falling back
// to generated and default values
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = types.GenerateUUID()
		}
		ctx = types.SetRequestID(ctx, requestID)

		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			tenantID = types.DefaultTenantID
		}
		ctx = types.SetTenantID(ctx, tenantID)

		if envID := c.GetHeader("X-Environment-ID"); envID != "" {
			ctx = types.SetEnvironmentID(ctx, envID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", types.GetRequestID(c.Request.Context()))
	}
}
