package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the HTTP API. service.GlobalServices must be initialised.
func NewRouter(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")
	{
		// Sample routes
		api.GET("/samples", ListSamples)
		api.POST("/samples", CreateSample)
		api.GET("/samples/:id", GetSample)
		api.PATCH("/samples/:id", UpdateSample)
		api.DELETE("/samples/:id", DeleteSample)

		// Database maintenance routes
		api.POST("/database/integrity", CheckIntegrity)
		api.POST("/database/checkpoint", Checkpoint)
		api.POST("/database/backup", Backup)
		api.POST("/database/deposit", Deposit)
		api.POST("/database/retrieve", Retrieve)

		// Error log routes
		api.GET("/error-logs", GetErrorLogs)
		api.GET("/error-logs/:id", GetErrorLogDetail)
		api.DELETE("/error-logs", ClearErrorLogs)

		// Trace stream
		api.GET("/trace/ws", TraceStream)

		// System shutdown routes
		api.POST("/shutdown/generate-code", GenerateShutdownCode)
		api.POST("/shutdown/verify", VerifyAndShutdown)

		// Health and metrics routes
		api.GET("/health", HealthCheck)
		api.GET("/metrics", GetMetrics)
		api.GET("/metrics/prometheus", GetPrometheusMetrics)
	}

	return r
}

// accessLog logs each request through zerolog.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Debug()
		if c.Writer.Status() >= 500 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
