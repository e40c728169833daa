package dispatch

import "sync/atomic"

// cursor hands out each index in [0, limit) exactly once.
// It is created per RunBounded call and shared only by that call's workers.
type cursor struct {
	next  atomic.Int64
	limit int64
}

func newCursor(limit int) *cursor {
	return &cursor{limit: int64(limit)}
}

// claim returns the next unclaimed index, or false once all indexes are taken.
// The compare-and-swap keeps next from ever passing limit.
func (c *cursor) claim() (int, bool) {
	for {
		cur := c.next.Load()
		if cur >= c.limit {
			return 0, false
		}
		if c.next.CompareAndSwap(cur, cur+1) {
			return int(cur), true
		}
	}
}

// claimed returns how many indexes have been handed out.
func (c *cursor) claimed() int {
	return int(c.next.Load())
}
