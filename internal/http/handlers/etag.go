package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type statsFunc func(ctx context.Context) (int64, *time.Time, error)

// notModified sets a weak ETag for a collection and reports whether the
// client's If-None-Match already matches it, in which case 304 has been
// written. Empty collections and stats failures are left to the normal list
// path.
func notModified(c *gin.Context, scope string, stats statsFunc) bool {
	count, maxTS, err := stats(c.Request.Context())
	if err != nil || count == 0 {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d"`, scope, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
