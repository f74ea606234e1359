package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/response"
)

// RequireRoles lets the request through only when the authenticated user holds
// one of the roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" is not permitted here"))
			c.Abort()
			return
		}
		c.Next()
	}
}

var (
	// PlanEditors are the roles allowed to change term plans.
	PlanEditors = []models.UserRole{models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin}
	// Operators may manage the service itself.
	Operators = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}
)
