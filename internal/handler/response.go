package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"furniture-service/internal/designer"
	"furniture-service/internal/model"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/storage"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var exposeErrors atomic.Bool

// ExposeErrorDetails controls whether failure responses carry the
// underlying error text. Only development deployments turn it on.
func ExposeErrorDetails(on bool) {
	exposeErrors.Store(on)
}

func respond(c echo.Context, status int, body echo.Map) error {
	body["success"] = true
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, message string, err error) error {
	body := echo.Map{"success": false, "message": message}
	if err != nil && exposeErrors.Load() {
		body["error"] = err.Error()
	}
	return c.JSON(status, body)
}

// failWith maps a domain error to its status and message
func failWith(c echo.Context, err error, fallback string) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, verr.Message, nil)
	case errors.Is(err, designer.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "Item not found in this design", nil)
	case errors.Is(err, designer.ErrAlreadyPlaced):
		return fail(c, http.StatusConflict, "This product is already in the room", nil)
	case errors.Is(err, designer.ErrInvalidColor),
		errors.Is(err, designer.ErrInvalidScale),
		errors.Is(err, designer.ErrInvalidDimensions),
		errors.Is(err, designer.ErrUnknownWall),
		errors.Is(err, designer.ErrUniformWalls):
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, storage.ErrFileTooLarge):
		return fail(c, http.StatusBadRequest, "File too large. Maximum file size is 100MB.", nil)
	case errors.Is(err, storage.ErrUnsupportedType):
		return fail(c, http.StatusBadRequest, storage.ErrUnsupportedType.Error(), nil)
	}
	return fail(c, http.StatusInternalServerError, fallback, err)
}

// ErrorHandler renders errors returned by handlers and middleware in the
// same envelope handlers use for their own failures.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
		if he.Internal != nil {
			err = he.Internal
		} else {
			err = nil
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = fail(c, status, message, err)
	}
	if err != nil {
		logger.FromContext(c).Error("Failed to write error response", zap.Error(err))
	}
}

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
