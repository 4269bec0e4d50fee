// internal/middleware/bodylimit.go
// Caps request body size before it ever reaches JSON decoding.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"league-core/internal/envelope"
)

// BodyLimit rejects any request body larger than envelope.MaxBodyBytes
// (spec.md §4.1) before handler code runs.
func BodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, envelope.MaxBodyBytes)
		c.Next()
	}
}
