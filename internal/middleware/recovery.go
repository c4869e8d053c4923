package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"quotaflow-go/internal/logging"
	"quotaflow-go/internal/monitoring"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery 返回一个 panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return RecoveryWithWriter(nil)
}

// RecoveryWithWriter turns a handler panic into a 500 and calls onPanic,
// if set, before the response is written.
func RecoveryWithWriter(onPanic gin.RecoveryFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			monitoring.PanicsRecoveredTotal.WithLabelValues("http").Inc()
			logging.WithReq(c, log.Fields{
				"panic": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			}).Error("Panic recovered")

			if onPanic != nil {
				onPanic(c, rec)
			}
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "panic_recovered",
					"type":    "internal_error",
					"message": "Internal server error",
				},
			})
		}()
		c.Next()
	}
}

// SafeGo 安全地启动 goroutine，带 panic 恢复
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				monitoring.PanicsRecoveredTotal.WithLabelValues("goroutine").Inc()
				log.WithFields(log.Fields{
					"goroutine": name,
					"panic":     fmt.Sprint(rec),
					"stack":     string(debug.Stack()),
				}).Error("Goroutine panic recovered")
			}
		}()
		fn()
	}()
}
