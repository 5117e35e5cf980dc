package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
)

func TestAuditLogsOperatorAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.POST("/sweep", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.OperatorClaims{
			Scope:            models.OperatorScope,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "ops@example.com"},
		})
		c.Next()
	}, Audit(zap.New(core), "scheduler.sweep"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sweep", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "scheduler.sweep", fields["action"])
	assert.Equal(t, "ops@example.com", fields["operator"])
	assert.EqualValues(t, http.StatusConflict, fields["status"])
}
