package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hearth-backend/internal/platform/apierr"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondAPIError renders err through FromError and attaches it to the gin context for the
// request logger.
func RespondAPIError(c *gin.Context, err error, fallbackCode string) {
	ae := FromError(err, fallbackCode)
	_ = c.Error(err)
	RespondError(c, ae.Status, ae.Code, ae)
}

// FromError maps service sentinels to API errors. Anything unknown becomes an opaque 500.
func FromError(err error, code string) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return apierr.BadRequest(code, err)
	case errors.Is(err, errs.ErrNotFound):
		return apierr.NotFound(code, err)
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrConcurrentUpdate):
		return apierr.Conflict(code, err)
	case errors.Is(err, errs.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, code, err)
	default:
		return apierr.Internal(code, err)
	}
}
