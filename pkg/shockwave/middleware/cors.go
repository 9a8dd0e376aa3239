package middleware

import (
	"strconv"
	"strings"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns the default CORS configuration: allow every
// origin, the common verbs, and any request header.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"*"},
		MaxAge:       86400,
	}
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing
// with the default configuration.
func CORS() Middleware {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware with custom configuration.
func CORSWithConfig(config CORSConfig) Middleware {
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"*"}
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = []string{"*"}
	}
	if config.MaxAge == 0 {
		config.MaxAge = 86400
	}

	allowMethods := []byte(strings.Join(config.AllowMethods, ", "))
	allowHeaders := []byte(strings.Join(config.AllowHeaders, ", "))
	exposeHeaders := []byte(strings.Join(config.ExposeHeaders, ", "))
	maxAge := []byte(strconv.Itoa(config.MaxAge))

	allowAllOrigins := false
	originSet := make(map[string]bool, len(config.AllowOrigins))
	for _, o := range config.AllowOrigins {
		if o == "*" {
			allowAllOrigins = true
			break
		}
		originSet[o] = true
	}

	return func(next http11.Handler) http11.Handler {
		return http11.HandlerFunc(func(req *http11.Request, resp *http11.FreshResponse) {
			origin := req.GetHeaderString("Origin")

			var allowOrigin string
			switch {
			case allowAllOrigins:
				allowOrigin = "*"
			case origin != "" && originSet[origin]:
				allowOrigin = origin
			}

			if allowOrigin != "" {
				resp.Headers().Set([]byte("Access-Control-Allow-Origin"), []byte(allowOrigin))
				if config.AllowCredentials {
					resp.Headers().Set([]byte("Access-Control-Allow-Credentials"), []byte("true"))
				}
				if len(config.ExposeHeaders) > 0 {
					resp.Headers().Set([]byte("Access-Control-Expose-Headers"), exposeHeaders)
				}
			}

			if req.IsOPTIONS() {
				if allowOrigin != "" {
					resp.Headers().Set([]byte("Access-Control-Allow-Methods"), allowMethods)
					resp.Headers().Set([]byte("Access-Control-Allow-Headers"), allowHeaders)
					resp.Headers().Set([]byte("Access-Control-Max-Age"), maxAge)
				}
				resp.SetStatus(204)
				resp.Send(nil)
				return
			}

			next.Handle(req, resp)
		})
	}
}
