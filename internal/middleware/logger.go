package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"homestay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorLogger recovers panics into a 500 envelope and writes one
// request_error line per failed request. Stacks are only printed for panics.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(c, start, "panic", fmt.Sprint(recovered))
				log.Printf("request_panic_stack request_id=%s\n%s", requestID(c), debug.Stack())
				c.Abort()
				response.Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error")
				return
			}

			for _, err := range c.Errors {
				logRequestError(c, start, errorKind(err.Type), err.Error())
			}
			if len(c.Errors) == 0 && c.Writer.Status() >= http.StatusInternalServerError {
				logRequestError(c, start, "http_error", http.StatusText(c.Writer.Status()))
			}
		}()

		c.Next()
	}
}

func errorKind(t gin.ErrorType) string {
	switch t {
	case gin.ErrorTypeBind:
		return "bind"
	case gin.ErrorTypeRender:
		return "render"
	case gin.ErrorTypePublic:
		return "public"
	default:
		return "private"
	}
}

func logRequestError(c *gin.Context, start time.Time, kind, message string) {
	log.Printf("request_error kind=%s status=%d method=%s route=%s tenant_id=%s actor=%s request_id=%s latency=%s error=%q",
		kind,
		c.Writer.Status(),
		c.Request.Method,
		routeOf(c),
		c.GetString(ctxTenantID),
		c.GetString(ctxActor),
		requestID(c),
		time.Since(start).Round(time.Microsecond),
		message,
	)
}

// routeOf prefers the registered pattern so ids do not fan out log lines.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func requestID(c *gin.Context) string {
	return c.GetHeader("X-Request-ID")
}
