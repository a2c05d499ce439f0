// Package handlers implements the gin handlers behind the HTTP API.
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FloraTraits/internal/interfaces/http/middleware"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// parsePagination reads limit and offset query parameters.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// writeError maps err to a status through its code. Server-side failures
// are masked with the code's default message.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	msg := errors.DefaultMessageForCode(code)
	var ae *errors.AppError
	if status < http.StatusInternalServerError && stderrors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      code.String(),
		Message:   msg,
		RequestID: middleware.GetRequestID(c),
	})
}
