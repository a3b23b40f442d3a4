package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/pkg/response"
)

// WithResponseMeta makes envelopes report processing time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Begin(c)
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	response.SetMeta(c, "cache_hit", hit)
}
