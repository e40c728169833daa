package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency applies when RunBounded is called with concurrency 0.
const DefaultConcurrency = 10

// Operation processes one item. It reports per-item failure inside R and must not panic.
type Operation[T, R any] func(ctx context.Context, index int, item T) R

type batchIDKey struct{}

// WithBatchID attaches a batch ID used to correlate dispatch log lines.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchID returns the batch ID carried by ctx, or "".
func BatchID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// RunBounded applies op to every item with at most concurrency operations in flight.
//
// The returned slice has len(items) entries and result[i] is op's result for items[i].
// A concurrency of 0 means DefaultConcurrency. ctx is handed to op unchanged;
// RunBounded itself never stops claiming work because ctx is done.
//
// If op panics, the remaining workers stop claiming new items, in-flight items
// finish, and RunBounded returns a *FaultError and no results.
func RunBounded[T, R any](ctx context.Context, items []T, concurrency int, op Operation[T, R]) ([]R, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	if concurrency < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidConcurrency, concurrency)
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	batchID := BatchID(ctx)
	if batchID == "" {
		batchID = xid.New().String()
		ctx = WithBatchID(ctx, batchID)
	}

	start := time.Now()
	workers := min(concurrency, len(items))
	p := &pool[T, R]{
		items:   items,
		results: results,
		op:      op,
		cursor:  newCursor(len(items)),
		logger:  logging.NewLogger("dispatch").With().Str("batch_id", batchID).Logger(),
	}

	p.logger.Info().
		Int("items", len(items)).
		Int("concurrency", concurrency).
		Int("workers", workers).
		Msg("Starting bounded dispatch")

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			return p.work(ctx, workerID)
		})
	}

	err := g.Wait()
	dispatchBatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		dispatchFaultsTotal.Inc()
		p.logger.Error().
			Err(err).
			Int("claimed", p.cursor.claimed()).
			Int("items", len(items)).
			Msg("Dispatch aborted")
		return nil, err
	}

	p.logger.Info().
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Dispatch complete")

	return results, nil
}

// pool is the state shared by the workers of a single RunBounded call.
type pool[T, R any] struct {
	items   []T
	results []R
	op      Operation[T, R]
	cursor  *cursor
	stopped atomic.Bool
	logger  zerolog.Logger
}

// work claims indexes until none are left or the batch has faulted.
func (p *pool[T, R]) work(ctx context.Context, workerID int) error {
	processed := 0

	for !p.stopped.Load() {
		idx, ok := p.cursor.claim()
		if !ok {
			break
		}

		p.logger.Debug().
			Int("worker_id", workerID).
			Int("index", idx).
			Msg("Starting operation")

		if err := p.run(ctx, idx); err != nil {
			p.stopped.Store(true)
			return err
		}
		processed++

		p.logger.Debug().
			Int("worker_id", workerID).
			Int("index", idx).
			Msg("Completed operation")
	}

	if processed > 0 {
		p.logger.Debug().
			Int("worker_id", workerID).
			Int("items_processed", processed).
			Msg("Worker completed")
	}

	return nil
}

// run executes op for one claimed index and stores its result in slot idx.
func (p *pool[T, R]) run(ctx context.Context, idx int) (err error) {
	dispatchInflight.Inc()
	defer dispatchInflight.Dec()

	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Index: idx, Value: r, Stack: debug.Stack()}
		}
	}()

	p.results[idx] = p.op(ctx, idx, p.items[idx])
	dispatchItemsTotal.Inc()
	return nil
}
