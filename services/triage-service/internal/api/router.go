package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stoik/triage/services/triage-service/internal/metrics"
)

func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 32 << 20

	// Request logging and latency metrics
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), latency)

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/stats", h.Stats)
		api.POST("/import", h.Import)
		api.POST("/search", h.Search)

		api.GET("/emails", h.ListEmails)
		api.GET("/emails/unextracted", h.ListUnextracted)
		api.GET("/emails/:id", h.GetEmail)
		api.POST("/emails/classify-all", h.ClassifyAll)
		api.POST("/emails/:id/classify", h.ClassifyEmail)

		api.POST("/events/extract/:id", h.ExtractEvents)
		api.GET("/events", h.ListEvents)
		api.POST("/events", h.CreateEvent)

		api.GET("/ollama/status", h.OllamaStatus)
		api.POST("/ai/chat", h.Chat)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/embeddings", h.Embeddings)
	}

	return r
}
