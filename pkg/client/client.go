// Package client is the entry point of fetch-pool: it validates a batch of
// URLs, fetches them with bounded concurrency and returns one Outcome per
// input, in input order.
package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/dispatch"
	"github.com/Sternrassler/fetch-pool/pkg/fetch"
	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"github.com/Sternrassler/fetch-pool/pkg/stats"
	"github.com/Sternrassler/fetch-pool/pkg/target"
	"github.com/rs/zerolog"
)

// Client fetches batches of URLs.
type Client struct {
	fetcher *fetch.Fetcher
	stats   stats.Store
	config  Config
	logger  zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// MaxConcurrency is used when a call passes concurrency 0.
	// Zero means dispatch.DefaultConcurrency.
	MaxConcurrency int

	// Fetch configures every single fetch (timeout, User-Agent, body cap).
	Fetch fetch.Config

	// HTTPClient performs the requests. Nil uses a default *http.Client.
	HTTPClient fetch.Doer

	// Stats receives one event per finished fetch. Nil disables stats.
	Stats stats.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: dispatch.DefaultConcurrency,
		Fetch:          fetch.DefaultConfig(),
		Stats:          stats.NopStore{},
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.MaxConcurrency < 0 {
		return nil, &ConfigError{Field: "max_concurrency", Reason: fmt.Sprintf("must be >= 0 (got %d)", cfg.MaxConcurrency)}
	}
	if cfg.Fetch.Timeout < 0 {
		return nil, &ConfigError{Field: "timeout", Reason: fmt.Sprintf("must be >= 0 (got %s)", cfg.Fetch.Timeout)}
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = dispatch.DefaultConcurrency
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NopStore{}
	}

	return &Client{
		fetcher: fetch.NewFetcher(cfg.HTTPClient, cfg.Fetch),
		stats:   cfg.Stats,
		config:  cfg,
		logger:  logging.NewLogger("client"),
	}, nil
}

// FetchURLs validates rawURLs and fetches them with at most concurrency
// requests in flight. Concurrency 0 uses Config.MaxConcurrency.
//
// If any URL is malformed a *target.InvalidBatchError is returned and no
// request is made. Otherwise the result has one Outcome per input at the
// same index; per-URL failures are Outcomes, not errors. The only other
// error is a *dispatch.FaultError when a fetch panics.
func (c *Client) FetchURLs(ctx context.Context, rawURLs []string, concurrency int) ([]fetch.Outcome, error) {
	targets, err := target.ParseBatch(rawURLs)
	if err != nil {
		c.logger.Warn().Err(err).Int("items", len(rawURLs)).Msg("Rejected batch")
		return nil, err
	}
	return c.FetchTargets(ctx, targets, concurrency)
}

// FetchTargets fetches already validated targets. See FetchURLs.
func (c *Client) FetchTargets(ctx context.Context, targets []target.Target, concurrency int) ([]fetch.Outcome, error) {
	if concurrency < 0 {
		return nil, fmt.Errorf("fetch targets: %w", dispatch.ErrInvalidConcurrency)
	}
	if concurrency == 0 {
		concurrency = c.config.MaxConcurrency
	}

	outcomes, err := dispatch.RunBounded(ctx, targets, concurrency, c.fetchOne)
	if err != nil {
		return nil, fmt.Errorf("fetch targets: %w", err)
	}
	return outcomes, nil
}

// fetchOne is the dispatch operation for one target.
func (c *Client) fetchOne(ctx context.Context, index int, t target.Target) fetch.Outcome {
	start := time.Now()
	outcome := c.fetcher.Fetch(ctx, t)

	ev := stats.Event{
		Host:     t.Host(),
		Result:   string(outcome.Result),
		Class:    string(outcome.Class),
		Status:   outcome.Status,
		Duration: time.Since(start),
		At:       start,
	}
	// Stats must not depend on the caller's deadline having time left.
	if err := c.stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.Warn().
			Err(err).
			Int("index", index).
			Str("url", t.String()).
			Msg("Failed to record fetch stats")
	}

	return outcome
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Close releases the stats store if it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.stats.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FetchURLs fetches rawURLs with a client built from DefaultConfig.
func FetchURLs(ctx context.Context, rawURLs []string, concurrency int) ([]fetch.Outcome, error) {
	c, err := New(DefaultConfig())
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.FetchURLs(ctx, rawURLs, concurrency)
}
