package middleware

import (
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps IDs accepted from clients.
const maxRequestIDLen = 64

// RequestID reuses the caller's X-Request-ID or assigns a new one, stores it
// in the gin context and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = utils.NewRequestID()
		}

		c.Set(utils.RequestIDField, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
