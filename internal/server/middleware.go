package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m2tx/manualchat/internal/model"
	"go.uber.org/zap"
)

const (
	apiKeyHeader     = "X-Goog-Api-Key"
	contextAPIKeyKey = "api_key"
)

// credential resolves the API key for routes that reach the remote service.
func credential(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(apiKeyHeader))
		if key == "" {
			key = strings.TrimSpace(fallback)
		}
		if key == "" {
			writeError(c, model.Errorf(model.KindMissingCredential, "no %s header and no configured key", apiKeyHeader))
			c.Abort()
			return
		}
		c.Set(contextAPIKeyKey, key)
		c.Next()
	}
}

func apiKey(c *gin.Context) string {
	return c.GetString(contextAPIKeyKey)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
