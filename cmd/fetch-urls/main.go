// Command fetch-urls fetches the URLs given as arguments (or one per line on
// stdin) with bounded concurrency and prints the outcomes as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/client"
	"github.com/Sternrassler/fetch-pool/pkg/dispatch"
	"github.com/Sternrassler/fetch-pool/pkg/fetch"
	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"github.com/Sternrassler/fetch-pool/pkg/metrics"
	"github.com/Sternrassler/fetch-pool/pkg/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

const redisPingTimeout = 3 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	cfg, err := loadConfig(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "fetch-urls: %v\n", err)
		return exitConfig
	}

	logCfg := cfg.loggerConfig()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewForcedLogger("fetch-urls")

	urls := args
	if len(urls) == 0 {
		urls, err = readURLs(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "fetch-urls: read urls: %v\n", err)
			return exitConfig
		}
	}

	if cfg.MetricsAddr != "" {
		ms, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			fmt.Fprintf(stderr, "fetch-urls: %v\n", err)
			return exitConfig
		}
		defer ms.Close()
		logger.Info().Str("addr", ms.Addr()).Msg("Serving metrics")
	}

	store := newStatsStore(ctx, cfg, logger)

	c, err := client.New(client.Config{
		MaxConcurrency: cfg.Concurrency,
		Fetch:          cfg.Fetch,
		Stats:          store,
	})
	if err != nil {
		fmt.Fprintf(stderr, "fetch-urls: %v\n", err)
		return exitConfig
	}
	defer c.Close()

	batchID := xid.New().String()
	start := time.Now()
	outcomes, err := c.FetchURLs(dispatch.WithBatchID(ctx, batchID), urls, cfg.Concurrency)
	if err != nil {
		event := logger.Error().Err(err).Str("batch_id", batchID)
		if entries := client.InvalidEntries(err); entries != nil {
			event = event.Int("invalid", len(entries))
		}
		event.Msg("Batch failed")
		fmt.Fprintf(stderr, "fetch-urls: %v\n", err)
		return exitFailed
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		fmt.Fprintf(stderr, "fetch-urls: write results: %v\n", err)
		return exitFailed
	}

	summarize(ctx, logger, batchID, outcomes, store, time.Since(start))

	if cfg.MetricsDump {
		if err := metrics.WriteText(stderr); err != nil {
			logger.Warn().Err(err).Msg("Failed to dump metrics")
		}
	}

	return exitOK
}

// readURLs reads one URL per line, skipping blank lines and # comments.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// newStatsStore returns a Redis store when REDIS_URL is set and reachable,
// otherwise an in-memory one.
func newStatsStore(ctx context.Context, cfg appConfig, logger zerolog.Logger) stats.Store {
	if cfg.RedisURL == "" {
		return stats.NewMemoryStore()
	}

	opts, err := redisOptions(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid REDIS_URL, keeping stats in memory")
		return stats.NewMemoryStore()
	}

	redisClient := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, keeping stats in memory")
		redisClient.Close()
		return stats.NewMemoryStore()
	}

	var storeOpts []stats.RedisOption
	if cfg.StatsPrefix != "" {
		storeOpts = append(storeOpts, stats.WithPrefix(cfg.StatsPrefix))
	}
	return stats.NewRedisStore(redisClient, storeOpts...)
}

func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		return redis.ParseURL(raw)
	}
	return &redis.Options{Addr: raw}, nil
}

// summarize logs one forced line describing the batch.
func summarize(ctx context.Context, logger zerolog.Logger, batchID string, outcomes []fetch.Outcome, store stats.Store, took time.Duration) {
	succeeded := 0
	for _, o := range outcomes {
		if o.OK() {
			succeeded++
		}
	}

	event := logger.Info().
		Str("batch_id", batchID).
		Int("total", len(outcomes)).
		Int("succeeded", succeeded).
		Int("failed", len(outcomes)-succeeded).
		Dur("duration", took)

	switch s := store.(type) {
	case *stats.RedisStore:
		if totals, err := s.Totals(ctx); err == nil {
			event = event.Int64("stats_success", totals.Success).Int64("stats_error", totals.Error)
		}
	case *stats.MemoryStore:
		event = event.Int("hosts", len(s.ByHost()))
	}

	event.Msg("Batch complete")
}
