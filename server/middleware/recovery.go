package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/expflow/errors"
	"github.com/skillsenselab/expflow/logger"
)

// Recovery returns a Gin middleware that recovers from handler panics, logs
// the stack and responds with the standard error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := map[string]interface{}{
					"panic":  fmt.Sprintf("%v", r),
					"stack":  string(debug.Stack()),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}
				if id, ok := c.Get(ContextRequestID); ok {
					fields[logger.FieldRequestID] = id
				}
				logger.Error("Panic recovered", fields)

				appErr := apperrors.Internal(fmt.Errorf("panic: %v", r))
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}
