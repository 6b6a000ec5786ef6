package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginsFromHosts turns ALLOWED_HOSTS entries into origins for New. A leading dot
// (Django-style subdomain wildcard) is dropped and "*" allows every origin.
func OriginsFromHosts(hosts []string, useHTTPS bool) []string {
	scheme := "http://"
	if useHTTPS {
		scheme = "https://"
	}
	origins := make([]string, 0, len(hosts))
	for _, host := range hosts {
		host = strings.TrimPrefix(strings.TrimSpace(host), ".")
		if host == "" {
			continue
		}
		if host == "*" {
			return nil
		}
		origins = append(origins, scheme+host)
	}
	return origins
}

// New returns a CORS middleware for the JSON API that honors a list of allowed origins.
// An empty list allows any origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || hasOrigin(originSet, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	if len(originSet) == 0 {
		return true
	}

	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
