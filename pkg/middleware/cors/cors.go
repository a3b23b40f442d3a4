package cors

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/pkg/middleware/requestid"
)

// New returns a CORS middleware. An empty origin list allows any origin
// without credentials; listed origins are matched case-insensitively and
// may carry credentials.
func New(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Requested-With", requestid.Header},
		ExposeHeaders: []string{requestid.Header, "Content-Disposition"},
		MaxAge:        10 * time.Minute,
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if o := normalize(origin); o != "" {
			origins[o] = struct{}{}
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowCredentials = true
		cfg.AllowOriginFunc = func(origin string) bool {
			_, ok := origins[normalize(origin)]
			return ok
		}
	}

	return cors.New(cfg)
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
