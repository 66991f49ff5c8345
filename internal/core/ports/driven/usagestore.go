package driven

import (
	"context"
	"time"
)

// UsageRecord is one recorded tool invocation.
type UsageRecord struct {
	ID        string
	Connector string
	Tool      string
	OK        bool
	Duration  time.Duration
	At        time.Time
}

// UsageSummary aggregates invocations for one connector/tool pair.
type UsageSummary struct {
	Connector string `json:"connector"`
	Tool      string `json:"tool"`
	Calls     int64  `json:"calls"`
	Errors    int64  `json:"errors"`
	AvgMillis int64  `json:"avg_millis"`
}

// UsageStore records tool invocations for later reporting.
type UsageStore interface {
	// Record persists one invocation.
	Record(ctx context.Context, rec UsageRecord) error

	// Report aggregates all invocations since the given time, grouped by
	// connector and tool, ordered by call count descending.
	Report(ctx context.Context, since time.Time) ([]UsageSummary, error)

	// Close releases the underlying database.
	Close() error
}
