package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	"github.com/noah-isme/hacktrackr-reminder/pkg/middleware/requestid"
)

// Audit records operator actions in the structured log after the request
// completes. Failed requests are logged at warn level.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		operator := ""
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.OperatorClaims); ok {
				operator = claims.Subject
			}
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("operator", operator),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", requestid.Value(c)),
		}
		if c.Writer.Status() >= 400 {
			logger.Warn("audit", fields...)
			return
		}
		logger.Info("audit", fields...)
	}
}
