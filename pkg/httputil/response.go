package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/surveillance-api/pkg/errors"
)

// Response wraps error and command responses. Analytics payloads are
// written bare so that clients can read them without unwrapping.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithJSON writes the payload as-is with a 200 status.
func RespondWithJSON(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// RespondWithError sends an error response. Unclassified errors become a
// 500 carrying the error text as diagnostic detail.
func RespondWithError(c *gin.Context, err error) {
	var (
		statusCode int
		message    string
		detail     interface{}
	)

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.StatusCode()
		message = appErr.Message
		detail = appErr.Detail
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
		detail = err.Error()
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Message: message,
			Detail:  detail,
		},
	})
}
