package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/response"
)

// RequireAnyPermission lets the request through when the session holds at
// least one of perms.
func RequireAnyPermission(perms ...string) gin.HandlerFunc {
	return permissionGate(perms, models.HasAnyPermission)
}

// RequireAllPermissions lets the request through when the session holds
// every one of perms.
func RequireAllPermissions(perms ...string) gin.HandlerFunc {
	return permissionGate(perms, models.HasAllPermissions)
}

func permissionGate(required []string, allowed func(granted, required []string) bool) gin.HandlerFunc {
	required = append([]string(nil), required...)
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrPrincipalMissing, ""))
			c.Abort()
			return
		}
		if !allowed(claims.Permisos, required) {
			granted := claims.Permisos
			if granted == nil {
				granted = []string{}
			}
			response.Error(c, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrForbidden, "permisos insuficientes"),
				map[string]interface{}{"required": required, "granted": granted},
			))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles lets managers through: Administrador, Gerente and Admin,
// matched exactly.
func RequireRoles() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrPrincipalMissing, ""))
			c.Abort()
			return
		}
		if !models.IsManagerRole(claims.Funcion) {
			response.Error(c, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrForbidden, "función no autorizada"),
				map[string]interface{}{"required": models.ManagerRoles(), "granted": claims.Funcion},
			))
			c.Abort()
			return
		}
		c.Next()
	}
}
