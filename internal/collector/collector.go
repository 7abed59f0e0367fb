package collector

import (
	"context"
	"fmt"

	"github.com/highload-stats/server/internal/metric"
)

// Collector samples one external metric source on the shared tick
// cadence and returns a normalized event. Every parse is fallible: a
// *ParseError means the source's output didn't match the expected
// shape and this tick's emission is skipped.
type Collector interface {
	Name() metric.Name
	Collect(ctx context.Context) (*metric.Event, error)
}

// StreamCollector owns a long-running sampler process and emits one
// event per sampler tick for as long as the process runs. Stream
// returns when the process exits or the context is canceled; the
// scheduler respawns it after a backoff.
type StreamCollector interface {
	Name() metric.Name
	Stream(ctx context.Context, emit func(*metric.Event)) error
}

// ParseError marks external tool output that did not match the
// expected pattern. The scheduler treats it as skip-this-tick rather
// than a sampler failure.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func parseErrf(source, format string, args ...any) *ParseError {
	return &ParseError{Source: source, Reason: fmt.Sprintf(format, args...)}
}
