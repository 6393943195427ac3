package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultAllowedOrigins admits browser extensions and local development servers.
var DefaultAllowedOrigins = []string{
	"chrome-extension://*",
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins are exact origins or patterns where "*" matches any run of characters.
	AllowedOrigins []string
}

// CORS returns a gin-contrib/cors middleware restricted to the configured origin patterns.
// Requests without an Origin header pass through untouched.
func CORS(config CORSConfig) gin.HandlerFunc {
	patterns := config.AllowedOrigins
	if len(patterns) == 0 {
		patterns = DefaultAllowedOrigins
	}

	return cors.New(cors.Config{
		AllowOriginFunc:     OriginMatcher(patterns),
		AllowMethods:        []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:        []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:       []string{"Content-Length", "X-Request-ID"},
		AllowCredentials:    true,
		AllowPrivateNetwork: true,
		MaxAge:              24 * time.Hour,
	})
}

// OriginMatcher compiles origin patterns into a predicate.
// "http://localhost:*" also matches the bare "http://localhost".
func OriginMatcher(patterns []string) func(origin string) bool {
	exact := make(map[string]struct{})
	var wildcards []*regexp.Regexp

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "*") {
			exact[p] = struct{}{}
			continue
		}
		expr := regexp.QuoteMeta(p)
		if strings.HasSuffix(p, ":*") {
			// port wildcard
			expr = strings.TrimSuffix(expr, `:\*`) + `(:\d+)?`
		}
		expr = strings.ReplaceAll(expr, `\*`, `.*`)
		wildcards = append(wildcards, regexp.MustCompile("^"+expr+"$"))
	}

	return func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, re := range wildcards {
			if re.MatchString(origin) {
				return true
			}
		}
		return false
	}
}
