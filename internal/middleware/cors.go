package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Authorization", "Accept", "Origin",
		headerAPIKey, headerTenantID, headerIdempotencyKey, "X-Request-ID",
	}, ", ")
	corsExposeHeaders = strings.Join([]string{headerIdempotentReplay, "X-Request-ID"}, ", ")
)

// CORS reflects allowed origins back to browsers. "*" admits any origin but
// then credentials are not advertised.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	anyOrigin := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			anyOrigin = true
		default:
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			} else if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			}
		}
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		// preflight ends here, before authentication
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
