package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/fetch-pool/internal/testutil"
	"github.com/Sternrassler/fetch-pool/pkg/fetch"
	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"github.com/Sternrassler/fetch-pool/pkg/stats"
)

// envMap is a getenv backed by a map.
func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(envMap(nil))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.Fetch != fetch.DefaultConfig() {
		t.Errorf("Fetch = %+v, want defaults", cfg.Fetch)
	}
	if cfg.Log.Enabled {
		t.Error("logging should be disabled by default")
	}
	if cfg.RedisURL != "" || cfg.MetricsDump || cfg.MetricsAddr != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"FETCH_CONCURRENCY": "4",
		"FETCH_TIMEOUT":     "2s",
		"FETCH_USER_AGENT":  "tester/1.0",
		"LOG_ENABLED":       "on",
		"LOG_LEVEL":         "debug",
		"LOG_PRETTY":        "true",
		"REDIS_URL":         "redis://localhost:6379/3",
		"STATS_PREFIX":      "ci",
		"METRICS_DUMP":      "yes",
	}))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.Fetch.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.UserAgent != "tester/1.0" {
		t.Errorf("UserAgent = %q", cfg.Fetch.UserAgent)
	}
	if !cfg.Log.Enabled || cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.RedisURL != "redis://localhost:6379/3" || cfg.StatsPrefix != "ci" {
		t.Errorf("redis settings = %q %q", cfg.RedisURL, cfg.StatsPrefix)
	}
	if !cfg.MetricsDump {
		t.Error("MetricsDump should be true")
	}
	if cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch.yaml")
	content := `
concurrency: 7
fetch:
  timeout: 750ms
  user_agent: from-file/1.0
  max_body_bytes: 1024
log:
  enabled: true
  level: warn
stats_prefix: file
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := loadConfig(envMap(map[string]string{
		"FETCH_CONFIG":      path,
		"FETCH_CONCURRENCY": "3",
	}))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want env override 3", cfg.Concurrency)
	}
	if cfg.Fetch.Timeout != 750*time.Millisecond {
		t.Errorf("Timeout = %v, want 750ms", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.UserAgent != "from-file/1.0" || cfg.Fetch.MaxBodyBytes != 1024 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if !cfg.Log.Enabled || cfg.Log.Level != "warn" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.StatsPrefix != "file" {
		t.Errorf("StatsPrefix = %q", cfg.StatsPrefix)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("concurrency: [not, an, int]"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad concurrency", env: map[string]string{"FETCH_CONCURRENCY": "many"}},
		{name: "negative concurrency", env: map[string]string{"FETCH_CONCURRENCY": "-1"}},
		{name: "bad timeout", env: map[string]string{"FETCH_TIMEOUT": "soon"}},
		{name: "missing file", env: map[string]string{"FETCH_CONFIG": "/does/not/exist.yaml"}},
		{name: "bad yaml", env: map[string]string{"FETCH_CONFIG": badYAML}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(envMap(tt.env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadURLs(t *testing.T) {
	input := "https://a.example\n\n  # comment\n  https://b.example  \n"
	urls, err := readURLs(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readURLs() error = %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("readURLs() = %q", urls)
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions("localhost:6380")
	if err != nil || opts.Addr != "localhost:6380" {
		t.Errorf("redisOptions(addr) = %+v, %v", opts, err)
	}

	opts, err = redisOptions("redis://cache.internal:6379/4")
	if err != nil {
		t.Fatalf("redisOptions(url) error = %v", err)
	}
	if opts.Addr != "cache.internal:6379" || opts.DB != 4 {
		t.Errorf("redisOptions(url) = addr %q db %d", opts.Addr, opts.DB)
	}

	if _, err := redisOptions("redis://host:6379/notadb"); err == nil {
		t.Error("expected error for invalid db")
	}
}

func TestNewStatsStore_FallsBackToMemory(t *testing.T) {
	logger := logging.NewForcedLogger("test")

	if _, ok := newStatsStore(context.Background(), appConfig{}, logger).(*stats.MemoryStore); !ok {
		t.Error("expected memory store without REDIS_URL")
	}

	cfg := appConfig{RedisURL: "127.0.0.1:1"}
	if _, ok := newStatsStore(context.Background(), cfg, logger).(*stats.MemoryStore); !ok {
		t.Error("expected memory store when redis is unreachable")
	}
}

func TestRun_PrintsOutcomesInOrder(t *testing.T) {
	mock := testutil.NewMockTarget()
	defer mock.Close()

	urls := []string{
		mock.ScriptedURL("success", 40*time.Millisecond, "first"),
		mock.ScriptedURL("error", 0, "second"),
		mock.ScriptedURL("success", 0, "third"),
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), urls, strings.NewReader(""), &stdout, &stderr,
		envMap(map[string]string{"FETCH_CONCURRENCY": "3"}))
	if code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}

	var outcomes []fetch.Outcome
	if err := json.Unmarshal(stdout.Bytes(), &outcomes); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
	}
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}

	wantResults := []fetch.Result{fetch.ResultSuccess, fetch.ResultError, fetch.ResultSuccess}
	wantData := []string{"first", "second", "third"}
	for i, o := range outcomes {
		if o.URL != urls[i] || o.Result != wantResults[i] {
			t.Errorf("outcomes[%d] = %+v", i, o)
		}
		data, _ := o.Data.(map[string]any)
		if data["data"] != wantData[i] {
			t.Errorf("outcomes[%d].Data = %#v, want %q", i, o.Data, wantData[i])
		}
	}

	// logging is off by default, the summary line is forced
	if !strings.Contains(stderr.String(), "Batch complete") {
		t.Errorf("expected forced summary on stderr, got:\n%s", stderr.String())
	}
}

func TestRun_ReadsStdin(t *testing.T) {
	mock := testutil.NewMockTarget()
	defer mock.Close()

	stdin := strings.NewReader(mock.ScriptedURL("success", 0, "a") + "\n" + mock.ScriptedURL("success", 0, "b") + "\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, stdin, &stdout, &stderr, envMap(nil))
	if code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if mock.RequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.RequestCount())
	}
}

func TestRun_ValidationErrorExitsWithoutRequests(t *testing.T) {
	mock := testutil.NewMockTarget()
	defer mock.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{mock.ScriptedURL("success", 0, "a"), "not a url"},
		strings.NewReader(""), &stdout, &stderr, envMap(nil))

	if code != exitFailed {
		t.Errorf("run() = %d, want %d", code, exitFailed)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", stdout.String())
	}
	if !strings.Contains(stderr.String(), "not a url") {
		t.Errorf("stderr should name the bad entry:\n%s", stderr.String())
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
}

func TestRun_ConfigError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"https://example.com"}, strings.NewReader(""), &stdout, &stderr,
		envMap(map[string]string{"FETCH_TIMEOUT": "later"}))
	if code != exitConfig {
		t.Errorf("run() = %d, want %d", code, exitConfig)
	}
}

func TestRun_MetricsDump(t *testing.T) {
	mock := testutil.NewMockTarget()
	defer mock.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{mock.ScriptedURL("success", 0, "m")}, strings.NewReader(""),
		&stdout, &stderr, envMap(map[string]string{"METRICS_DUMP": "true"}))
	if code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	for _, name := range []string{"fetchpool_fetch_requests_total", "fetchpool_dispatch_items_total"} {
		if !strings.Contains(stderr.String(), name) {
			t.Errorf("metrics dump is missing %s", name)
		}
	}
}

func TestServeMetrics(t *testing.T) {
	ms, err := serveMetrics("127.0.0.1:0", logging.NewForcedLogger("test"))
	if err != nil {
		t.Fatalf("serveMetrics() error = %v", err)
	}
	defer ms.Close()

	resp, err := http.Get("http://" + ms.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("expected Prometheus exposition, got:\n%s", body)
	}
}

func TestRun_MetricsAddrServesDuringBatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	// the target scrapes the metrics endpoint while its own request is in flight
	scraped := make(chan string, 1)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if resp, err := http.Get("http://" + addr + "/metrics"); err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			scraped <- string(body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer target.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{target.URL}, strings.NewReader(""), &stdout, &stderr,
		envMap(map[string]string{"METRICS_ADDR": addr}))
	if code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}

	select {
	case body := <-scraped:
		if !strings.Contains(body, "fetchpool_dispatch_inflight") {
			t.Errorf("metrics scraped during the batch are missing fetchpool families:\n%s", body)
		}
	default:
		t.Fatal("metrics endpoint was not reachable during the batch")
	}
	if _, err := http.Get("http://" + addr + "/metrics"); err == nil {
		t.Error("metrics server should be closed after run returns")
	}
}

func TestRun_MetricsAddrInvalid(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"https://example.com"}, strings.NewReader(""), &stdout, &stderr,
		envMap(map[string]string{"METRICS_ADDR": "not-an-address"}))
	if code != exitConfig {
		t.Errorf("run() = %d, want %d", code, exitConfig)
	}
	if !strings.Contains(stderr.String(), "metrics listener") {
		t.Errorf("stderr should explain the listener failure:\n%s", stderr.String())
	}
}
