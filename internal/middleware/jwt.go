package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

// ContextOperatorKey is the gin context key storing the authenticated operator.
const ContextOperatorKey = "currentOperator"

// TokenValidator verifies operator access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.OperatorClaims, error)
}

// JWT protects routes by requiring a valid operator token.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextOperatorKey, &models.CurrentOperator{ID: claims.Subject, Name: claims.Name, Role: claims.Role})
		c.Next()
	}
}

// CurrentOperator returns the operator attached by JWT.
func CurrentOperator(c *gin.Context) (*models.CurrentOperator, bool) {
	value, exists := c.Get(ContextOperatorKey)
	if !exists {
		return nil, false
	}
	operator, ok := value.(*models.CurrentOperator)
	return operator, ok && operator != nil
}
