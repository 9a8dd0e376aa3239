package middleware

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
)

// RecoveryConfig configures the Recovery middleware.
type RecoveryConfig struct {
	// Logger receives the panic value and stack trace. Defaults to
	// logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultRecoveryConfig returns the default recovery configuration.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{Logger: logrus.StandardLogger()}
}

// Recovery returns a middleware that recovers from a panic in the
// handler chain, logs it, and responds 500 instead of letting the
// connection's read pump crash the whole reactor.
func Recovery() Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig returns a Recovery middleware with custom configuration.
func RecoveryWithConfig(config RecoveryConfig) Middleware {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return func(next http11.Handler) http11.Handler {
		return http11.HandlerFunc(func(req *http11.Request, resp *http11.FreshResponse) {
			defer func() {
				if r := recover(); r != nil {
					config.Logger.WithFields(logrus.Fields{
						"panic": r,
						"stack": string(debug.Stack()),
						"path":  req.Path(),
					}).Error("http11: recovered from panic in handler")

					resp.SetStatus(500)
					resp.Send([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.Handle(req, resp)
		})
	}
}
