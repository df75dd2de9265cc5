// Package telemetry reports enriched errors to Sentry when the user has
// opted in.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// Init configures Sentry and hooks error reporting into the errors
// package. It is a no-op when telemetry is disabled in the settings.
func Init(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Release:          settings.Version,
		AttachStacktrace: true,
	})
	if err != nil {
		return errors.Wrap(err).
			Category(errors.CategoryConfiguration).
			Context("component", "telemetry").
			Build()
	}

	errors.SetReporter(reportError)
	logging.ForService("telemetry").Info("error telemetry enabled")
	return nil
}

// reportError forwards one enhanced error to Sentry with its component,
// category, and context attached as tags and extras.
func reportError(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for key, value := range ee.GetContext() {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(ee)
	})
}

// Flush drains pending events, called on shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
