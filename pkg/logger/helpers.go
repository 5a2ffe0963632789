package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogMediaFetch records the outcome of a single media download.
// A cached hit is logged at debug level; failures are warnings since they never abort a scrape.
func LogMediaFetch(l Logger, owner, url, path string, cached bool, err error) {
	fields := map[string]interface{}{
		"owner":  owner,
		"url":    url,
		"cached": cached,
	}
	if path != "" {
		fields["path"] = path
	}

	switch {
	case err != nil:
		l.WithError(err).WarnWithFields("Media fetch failed", fields)
	case cached:
		l.DebugWithFields("Media already on disk", fields)
	default:
		l.DebugWithFields("Media downloaded", fields)
	}
}

// LogScrollProgress logs one iteration of the crawl loop
func LogScrollProgress(l Logger, username, state string, collected, target, stalls, iteration int) {
	l.WithFields(map[string]interface{}{
		"username":  username,
		"state":     state,
		"collected": collected,
		"target":    target,
		"stalls":    stalls,
		"iteration": iteration,
	}).Debug("Scroll progress")
}

// LogTranslation logs a translation attempt
func LogTranslation(l Logger, from, to string, chunks int, elapsed time.Duration, err error) {
	fields := map[string]interface{}{
		"from":     from,
		"to":       to,
		"chunks":   chunks,
		"duration": elapsed,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Translation failed, keeping original text", fields)
		return
	}
	l.DebugWithFields("Translation completed", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("Component started", settings)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
