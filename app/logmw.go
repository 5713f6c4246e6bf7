package app

import (
	"time"

	"Gin_postgres_redis_inventory/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger 给每个请求一个 request id（放进 ctx 的日志字段），结束时打一行
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(RequestIDHeader, rid)
		ctx := logger.ContextWithFields(c.Request.Context(), logger.String("request_id", rid))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		access := logger.With(
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
		)
		status := c.Writer.Status()
		fields := []logger.Field{
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
			logger.String("ip", c.ClientIP()),
		}
		if email := CurrentEmail(c); email != "" {
			fields = append(fields, logger.String("user", email))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}
		lvl := logger.LevelInfo
		switch {
		case status >= 500:
			lvl = logger.LevelError
		case status >= 400:
			lvl = logger.LevelWarn
		}
		access.Log(ctx, lvl, "request", fields...)
	}
}
