package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextRequestID is the Gin context key holding the request id.
const ContextRequestID = "request_id"

// HeaderRequestID is the request id header name.
const HeaderRequestID = "X-Request-Id"

// RequestID ensures every request carries a request id: an incoming
// X-Request-Id is propagated, otherwise a fresh one is generated. The id is
// stored in the Gin context and echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
