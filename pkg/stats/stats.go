// Package stats records per-host fetch outcome counters.
//
// Only counts are kept, never fetched data. Recording is best effort: callers
// log a failed Record and carry on.
package stats

import (
	"context"
	"time"
)

// Event describes one finished fetch.
type Event struct {
	Host     string
	Result   string
	Class    string
	Status   int
	Duration time.Duration
	At       time.Time
}

// Store persists outcome counters.
type Store interface {
	Record(ctx context.Context, ev Event) error
}

// Counters holds success/error totals.
type Counters struct {
	Success int64 `json:"success"`
	Error   int64 `json:"error"`
}

// Total returns Success + Error.
func (c Counters) Total() int64 {
	return c.Success + c.Error
}

func (c *Counters) add(result string, n int64) {
	if result == "success" {
		c.Success += n
		return
	}
	c.Error += n
}

// NopStore discards every event.
type NopStore struct{}

// Record implements Store.
func (NopStore) Record(context.Context, Event) error { return nil }
