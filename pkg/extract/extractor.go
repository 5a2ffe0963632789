package extract

import (
	"net/url"
	"strings"

	"xscraper/pkg/logger"
)

// Extractor maps a page snapshot to field values. It holds no page state and
// is safe to share; a miss returns the field's empty value and logs once.
type Extractor struct {
	siteHost string
	logger   logger.Logger
}

// New creates an extractor for pages served from baseURL
func New(baseURL string, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	host := "x.com"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		host = strings.TrimPrefix(u.Hostname(), "www.")
	}
	return &Extractor{
		siteHost: host,
		logger:   log.WithField("component", "extract"),
	}
}

func (e *Extractor) miss(field string) {
	e.logger.WithField("field", field).Debug("Field not found on page")
}
