// Package testutil provides testing utilities for fetch-pool.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock target response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTarget is a configurable HTTP server standing in for fetch targets.
//
// Paths of the form /<success|error>/<delayMs>/<value> are scripted: the
// server waits delayMs, then answers 200 (success) or 500 (error) with the
// body {"data": "<value>"}. Other paths use handlers registered with
// SetHandler/SetResponse, or 404.
type MockTarget struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	paths        []string
	inflight     int
	maxInflight  int
	lastHeader   http.Header
}

// NewMockTarget creates and starts a new mock target server.
func NewMockTarget() *MockTarget {
	mock := &MockTarget{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.paths = append(mock.paths, r.URL.Path)
		mock.lastHeader = r.Header.Clone()
		mock.inflight++
		if mock.inflight > mock.maxInflight {
			mock.maxInflight = mock.inflight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inflight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}

		mock.scriptedHandler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockTarget) URL() string {
	return m.server.URL
}

// ScriptedURL builds a URL for the scripted handler.
func (m *MockTarget) ScriptedURL(result string, delay time.Duration, value string) string {
	return fmt.Sprintf("%s/%s/%d/%s", m.server.URL, result, delay.Milliseconds(), value)
}

// Close shuts down the mock server.
func (m *MockTarget) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTarget) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.paths = nil
	m.maxInflight = 0
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockTarget) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockTarget) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests received so far.
func (m *MockTarget) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// Paths returns the request paths in arrival order.
func (m *MockTarget) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// MaxInflight returns the highest number of concurrently served requests.
func (m *MockTarget) MaxInflight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInflight
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockTarget) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// scriptedHandler serves /<result>/<delayMs>/<value> paths.
func (m *MockTarget) scriptedHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	result, delayStr, value := parts[0], parts[1], parts[2]
	delayMs, err := strconv.Atoi(delayStr)
	if err != nil {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}

	if delayMs > 0 {
		select {
		case <-time.After(time.Duration(delayMs) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	status := http.StatusOK
	if result == "error" {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{ "data": "%s" }`, value)
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewTextResponse creates a response with a plain text body.
func NewTextResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response with a plain text body.
func NewNotFoundResponse() MockResponse {
	return NewTextResponse(http.StatusNotFound, "not found")
}
