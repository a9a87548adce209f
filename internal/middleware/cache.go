package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey    = "response_meta"
	responseMetaStart  = "response_meta_start"
	cacheHitMetaField  = "cache_hit"
	elapsedMsMetaField = "elapsed_ms"
)

// ResponseMeta stamps the request with its start time so handlers that
// serve cache-aside payloads can report cache_hit and elapsed_ms in
// the response meta block.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaStart, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the current response was served from
// cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := ensureMeta(c)
	meta[cacheHitMetaField] = hit
}

// ExtractMeta returns the response metadata collected so far, with the
// elapsed time filled in when ResponseMeta ran for this request. Nil
// when no handler recorded anything.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	stored, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := stored.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, exists := c.Get(responseMetaStart); exists {
		if t, ok := start.(time.Time); ok {
			meta[elapsedMsMetaField] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if stored, exists := c.Get(responseMetaKey); exists {
		if meta, ok := stored.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
