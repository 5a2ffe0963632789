// Package logger provides the structured logging interface used across the scraper.
//
// It wraps zerolog and adds:
//   - console output with coloured levels, or JSON lines when Format is "json"
//   - an optional file sink written alongside the console
//   - child loggers carrying fields (WithField, WithFields, WithError)
//   - a global instance (Initialize, GetLogger) for the CLI
//   - NewNopLogger and NewTestLogger for tests
//
// Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("username", "jack")
//	log.InfoWithFields("Profile scraped", map[string]interface{}{"followers": 1200})
package logger
