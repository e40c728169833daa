// Package fetch performs a single HTTP fetch of a validated target and
// reports the result as an Outcome value instead of an error.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"github.com/Sternrassler/fetch-pool/pkg/target"
	"github.com/rs/zerolog"
)

// Defaults for Config.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultUserAgent    = "fetch-pool/0.1.0"
	DefaultMaxBodyBytes = 10 << 20
)

// errZeroTarget is reported for a Target that did not come from the validator.
var errZeroTarget = errors.New("target was not validated")

// Doer is the HTTP capability the fetcher depends on.
// *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds fetcher configuration.
type Config struct {
	// Timeout is the deadline for one fetch, including reading the body.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent header sent with every request.
	UserAgent string `yaml:"user_agent"`

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Fetcher issues GET requests and classifies the responses.
type Fetcher struct {
	doer   Doer
	config Config
	logger zerolog.Logger
	forced zerolog.Logger
}

// NewFetcher creates a new fetcher. A nil doer uses an *http.Client without its
// own timeout; the per-fetch deadline comes from Config.Timeout.
func NewFetcher(doer Doer, config Config) *Fetcher {
	if doer == nil {
		doer = &http.Client{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Fetcher{
		doer:   doer,
		config: config,
		logger: logging.NewLogger("fetch"),
		forced: logging.NewForcedLogger("fetch"),
	}
}

// Config returns the effective configuration.
func (f *Fetcher) Config() Config {
	return f.config
}

// Fetch performs one GET request against t with the configured deadline.
// It never returns an error: failures are reported as the error variant of Outcome.
func (f *Fetcher) Fetch(ctx context.Context, t target.Target) Outcome {
	start := time.Now()
	outcome := f.fetch(ctx, t)
	f.observe(outcome, time.Since(start))
	return outcome
}

func (f *Fetcher) fetch(ctx context.Context, t target.Target) Outcome {
	if t.IsZero() {
		return TransportFailure(t.String(), errZeroTarget)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.String(), nil)
	if err != nil {
		return TransportFailure(t.String(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")

	resp, err := f.doer.Do(req)
	if err != nil {
		return TransportFailure(t.String(), err)
	}
	defer resp.Body.Close()

	raw, truncated := f.readBody(resp.Body)
	data := decodeBody(raw)

	var outcome Outcome
	if IsSuccessStatus(resp.StatusCode) {
		outcome = Success(t.String(), resp.StatusCode, data)
	} else {
		outcome = Failure(t.String(), resp.StatusCode, data)
	}
	if truncated {
		outcome.Error = fmt.Sprintf("body truncated at %d bytes", f.config.MaxBodyBytes)
	}
	return outcome
}

// readBody reads at most MaxBodyBytes and reports whether the body was longer.
// A read error replaces the body with its message.
func (f *Fetcher) readBody(body io.Reader) ([]byte, bool) {
	limit := f.config.MaxBodyBytes
	n := limit
	if n < math.MaxInt64 {
		n++
	}
	raw, err := io.ReadAll(io.LimitReader(body, n))
	if err != nil {
		return []byte(err.Error()), false
	}
	if int64(len(raw)) > limit {
		return raw[:limit], true
	}
	return raw, false
}

// decodeBody returns the body parsed as JSON, or the raw text when it is not valid JSON.
func decodeBody(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// observe records metrics and logs for a finished fetch.
func (f *Fetcher) observe(o Outcome, took time.Duration) {
	fetchRequestsTotal.WithLabelValues(string(o.Result), string(o.Class)).Inc()
	fetchDuration.WithLabelValues(string(o.Result)).Observe(took.Seconds())

	if o.OK() {
		f.logger.Debug().
			Str("url", o.URL).
			Int("status", o.Status).
			Dur("duration", took).
			Msg("Successfully fetched")
		return
	}

	event := f.forced.Warn().
		Str("url", o.URL).
		Str("error_class", string(o.Class)).
		Dur("duration", took)
	if o.HasStatus() {
		event = event.Int("status", o.Status)
	}
	if o.Error != "" {
		event = event.Str("error", o.Error)
	}
	event.Msg("Failed to fetch")
}
