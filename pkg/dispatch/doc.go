// Package dispatch runs independent operations over a slice with a fixed upper
// bound on how many are in flight at once.
//
// Example usage:
//
//	outcomes, err := dispatch.RunBounded(ctx, targets, 5,
//		func(ctx context.Context, i int, t target.Target) fetch.Outcome {
//			return fetcher.Fetch(ctx, t)
//		})
//
// RunBounded:
//   - Spawns min(concurrency, len(items)) workers (default concurrency 10)
//   - Each worker claims the next unclaimed index from a per-call cursor
//   - A worker that finishes claims the next index immediately (no rounds)
//   - result[i] is always the outcome of items[i], whatever the completion order
//   - Returns only after every worker has exited
//
// Operations report per-item failures as values. A panicking operation is a
// fault of the batch: it is recovered, the remaining workers stop claiming and
// RunBounded returns a *FaultError instead of results.
package dispatch
