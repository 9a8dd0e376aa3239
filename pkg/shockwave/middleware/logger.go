package middleware

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
)

// LoggerConfig configures the Logger middleware.
type LoggerConfig struct {
	// Logger receives one structured entry per request. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger

	// SkipPaths are request paths excluded from logging.
	SkipPaths []string
}

// DefaultLoggerConfig returns the default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{Logger: logrus.StandardLogger()}
}

// Logger returns a middleware that logs one structured logrus entry per
// request: method, path, status, and duration.
func Logger() Middleware {
	return LoggerWithConfig(DefaultLoggerConfig())
}

// LoggerWithConfig returns a Logger middleware with custom configuration.
func LoggerWithConfig(config LoggerConfig) Middleware {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http11.Handler) http11.Handler {
		return http11.HandlerFunc(func(req *http11.Request, resp *http11.FreshResponse) {
			if skip[req.Path()] {
				next.Handle(req, resp)
				return
			}

			start := time.Now()
			next.Handle(req, resp)

			config.Logger.WithFields(logrus.Fields{
				"method":      req.Method(),
				"path":        req.Path(),
				"status":      resp.Status(),
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			}).Info("http11: request handled")
		})
	}
}
