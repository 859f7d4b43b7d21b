package middleware

import (
	"furniture-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxRequestIDLen = 128

// RequestIDMiddleware tags each request with an id, reusing a well-formed
// X-Request-ID from the caller. The id is echoed back in the response.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(logger.RequestIDKey)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Response().Header().Set(logger.RequestIDKey, id)
		return next(c)
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
