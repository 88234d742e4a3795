package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/securefs"
)

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// errMaskNotOwned rejects preference events naming another frame's masks.
var errMaskNotOwned = errors.NewStd("mask does not belong to image")

// NewErrorResponse creates a new API error response. An empty correlationID
// gets a fresh uuid.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, ingest.ErrIngestionInProgress),
		errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	case errors.Is(err, securefs.ErrInvalidPath),
		errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, errMaskNotOwned),
		errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.Is(err, securefs.ErrNotFound),
		errors.Is(err, repository.ErrFrameNotFound),
		errors.Is(err, repository.ErrMaskNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrPreferenceNotFound),
		errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes it as an ErrorResponse with the given code.
// The request id doubles as correlation id when one is present.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	correlationID := ctx.Response().Header().Get(echo.HeaderXRequestID)
	errorResp := NewErrorResponse(err, message, code, correlationID)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Debug("API error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// fail is HandleError with the status derived from err.
func (c *Controller) fail(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, StatusFor(err))
}

// HTTPErrorHandler renders errors that reach echo (unknown routes, body
// limit, rate limit, panics) in the ErrorResponse shape.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := StatusFor(err)
	message := http.StatusText(code)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		if httpErr.Internal != nil {
			err = httpErr.Internal
		}
	}

	if ctx.Request().Method == http.MethodHead {
		if writeErr := ctx.NoContent(code); writeErr != nil {
			c.log.Warn("Failed to write error response", logger.Error(writeErr))
		}
		return
	}
	if writeErr := c.HandleError(ctx, err, message, code); writeErr != nil {
		c.log.Warn("Failed to write error response", logger.Error(writeErr))
	}
}
