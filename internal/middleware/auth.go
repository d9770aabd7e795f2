package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/surveillance-api/pkg/httputil"
)

const HeaderXAPIKey = "X-API-Key"

// APIKey guards operator endpoints with a shared backend key. An empty
// configured key rejects every request rather than opening the route.
func APIKey(expected string) gin.HandlerFunc {
	want := []byte(expected)

	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HeaderXAPIKey))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Str("request_id", c.GetString(ContextRequestID)).
				Msg("rejected request with invalid api key")

			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    http.StatusUnauthorized,
					Message: "Unauthorized",
				},
			})
			return
		}
		c.Next()
	}
}
