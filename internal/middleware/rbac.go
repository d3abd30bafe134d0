package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

// RequireRoles allows the request through only when the operator holds one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		operator, ok := CurrentOperator(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[operator.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
