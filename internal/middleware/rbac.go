package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

// Guard aborts with 403 unless allow accepts the caller.
func Guard(allow func(*models.JWTClaims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allow(claims) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles admits callers holding one of roles. Superusers always pass.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return Guard(func(claims *models.JWTClaims) bool {
		if claims.IsSuperuser {
			return true
		}
		_, ok := allowed[claims.Role]
		return ok
	})
}

// RequireAdmin admits superusers, staff accounts and the ADMIN role.
func RequireAdmin() gin.HandlerFunc {
	return Guard(func(claims *models.JWTClaims) bool {
		return claims.IsSuperuser || claims.IsStaff || claims.Role == models.RoleAdmin
	})
}
