package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   *apperrors.AppError `json:"error"`
	Stack   []string            `json:"stack,omitempty"`
}

// RenderError writes err as an ErrorResponse. Errors that are not AppErrors
// are logged and reported as a generic internal error. Stack frames are only
// included outside release mode.
func RenderError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.FromContext(c.Request.Context()).Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		appErr = apperrors.Wrap(apperrors.ErrInternalServer, err)
	} else if appErr.Internal != nil {
		logger.FromContext(c.Request.Context()).Errorw("app error",
			"code", appErr.Code,
			"message", appErr.Message,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
		)
	}

	body := ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Error:   appErr,
	}
	if gin.Mode() != gin.ReleaseMode {
		body.Stack = appErr.Stack()
	}
	c.JSON(appErr.StatusCode, body)
}

// ErrorHandler returns a Gin middleware that renders the last error attached
// to the context when the handler did not write a response itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RenderError(c, c.Errors.Last().Err)
	}
}
