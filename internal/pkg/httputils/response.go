// Package httputils provides HTTP response helpers.
package httputils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/pkg/utils/errors"
)

// ErrorBody is the error response shape returned by every endpoint.
type ErrorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// WriteError writes a structured error response. The HTTP status and the
// user-facing message come from the error code registry; unknown errors
// surface as internal errors. Underlying cause details are only exposed
// outside release mode.
func WriteError(c *gin.Context, err error) {
	e := errors.FromError(err)

	body := ErrorBody{
		Error:     e.Message(c.GetHeader("Accept-Language")),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if gin.Mode() != gin.ReleaseMode {
		if cause := e.Unwrap(); cause != nil {
			body.Details = cause.Error()
		}
	}

	c.JSON(e.HTTPStatus(), body)
}

// WriteData writes a 200 response with the given body as-is.
func WriteData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
