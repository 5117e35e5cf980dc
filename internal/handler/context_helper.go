package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hacktrackr-reminder/internal/middleware"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
)

// operatorSubject names the operator behind the request, or "" when the route
// is not behind the JWT middleware.
func operatorSubject(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return ""
	}
	if claims, ok := value.(*models.OperatorClaims); ok {
		return claims.Subject
	}
	return ""
}
