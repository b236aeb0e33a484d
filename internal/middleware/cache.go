package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as uncacheable. Attempt payloads carry per-user
// papers and running results that must never be served from a shared cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
