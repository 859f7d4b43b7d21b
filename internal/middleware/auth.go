package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"furniture-service/internal/model"
	"furniture-service/pkg/jwtutil"
	"furniture-service/pkg/logger"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context keys set by JWTAuthMiddleware
const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
)

// Places a token is read from, in order
const (
	TokenHeader = "x-auth-token"
	TokenCookie = "token"
)

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": message})
}

// JWTAuthMiddleware validates the request token and loads the user it
// names. The user is stored under ContextUserKey.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			tokenString := TokenFromRequest(c)
			if tokenString == "" {
				log.Warn("Missing authorization token")
				prometheus.RecordAuthError("missing_token")
				return unauthorized(c, "Not authorized to access this route")
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if errors.Is(err, jwtutil.ErrExpiredToken) {
				log.Warn("Expired token")
				prometheus.RecordAuthError("expired_token")
				return unauthorized(c, "Your session has expired, please login again")
			}
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return unauthorized(c, "Invalid token")
			}

			done := prometheus.TrackDBOperation("query")
			var user model.User
			err = db.WithContext(c.Request().Context()).First(&user, claims.UserID).Error
			done(time.Now())
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("Token user no longer exists", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("user_not_found")
				return unauthorized(c, "User not found")
			}
			if err != nil {
				log.Error("Failed to load token user", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Server error"})
			}

			c.Set(ContextUserKey, &user)
			c.Set(ContextClaimsKey, claims)
			logger.SetContextLogger(c, log.With(zap.Uint("user_id", user.ID)))
			log.Debug("Request authenticated",
				zap.Uint("user_id", user.ID),
				zap.String("role", user.Role))

			return next(c)
		}
	}
}

// TokenFromRequest returns the bearer token, the x-auth-token header or
// the token cookie, whichever is found first.
func TokenFromRequest(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if token := c.Request().Header.Get(TokenHeader); token != "" {
		return token
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// CurrentUser returns the user loaded by JWTAuthMiddleware
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(ContextUserKey).(*model.User)
	return user, ok && user != nil
}
