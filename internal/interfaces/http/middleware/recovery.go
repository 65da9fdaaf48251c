package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/bookkeeper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				reqLog := log
				if _, ok := c.Get(logger.GinLoggerKey); ok {
					reqLog = logger.GetGinLogger(c)
				}
				reqLog.Error("Panic recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
					dto.ErrCodeInternal,
					"An unexpected error occurred",
					GetRequestID(c),
				))
			}
		}()
		c.Next()
	}
}
