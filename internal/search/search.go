// Package search implements the two read-only searches over a store: a fuzzy
// file-path locator and a regex content search with context lines and
// bounded previews. Both accept include/exclude globs and a folder scope,
// and both stop promptly when their context is cancelled.
package search

import (
	"errors"
	"time"

	"memvfs/internal/logging"
	"memvfs/internal/metrics"
)

// ErrInvalidPattern is returned when a content-search pattern does not
// compile. No results are reported in that case.
var ErrInvalidPattern = errors.New("invalid search pattern")

// Search kinds, used as metrics labels.
const (
	KindFile = "file"
	KindText = "text"
)

type settings struct {
	metrics      *metrics.Metrics
	logger       *logging.Logger
	regexTimeout time.Duration
}

// Option configures a searcher.
type Option func(*settings)

// WithMetrics records search counts and durations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithRegexTimeout bounds the time spent matching a single line. Lines that
// time out are treated as having no matches. Zero means no bound.
func WithRegexTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.regexTimeout = d
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger().WithPrefix("search")
	}
	return s
}
