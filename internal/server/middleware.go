package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// requestLogger はリクエストをlogrへ記録するginミドルウェア
func requestLogger(log logr.Logger) gin.HandlerFunc {
	log = log.WithName("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		log.Info("HTTPリクエスト", kv...)
	}
}
