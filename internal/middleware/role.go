package middleware

import (
	"net/http"

	"furniture-service/internal/model"
	"furniture-service/pkg/logger"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireRole allows the request through when the authenticated user has
// one of roles. It must run after JWTAuthMiddleware.
func RequireRole(message string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return unauthorized(c, "Not authorized to access this route")
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			logger.FromContext(c).Warn("Role check failed",
				zap.String("role", user.Role),
				zap.Strings("required", roles))
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": message})
		}
	}
}

// AdminOnly restricts a route to admins
func AdminOnly() echo.MiddlewareFunc {
	return RequireRole("Access denied: Admin only", model.RoleAdmin)
}

// DesignerOnly restricts a route to designers; admins pass too
func DesignerOnly() echo.MiddlewareFunc {
	return RequireRole("Access denied: Designer only", model.RoleDesigner, model.RoleAdmin)
}
