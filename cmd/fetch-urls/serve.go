package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/metrics"
	"github.com/rs/zerolog"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer exposes /metrics while a batch runs.
type metricsServer struct {
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

// serveMetrics starts listening on addr and serves metrics.Handler on /metrics.
func serveMetrics(addr string, logger zerolog.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	s := &metricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		addr: ln.Addr(),
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", s.addr.String()).Msg("Metrics server stopped")
		}
	}()

	return s, nil
}

// Addr is the address the server actually listens on.
func (s *metricsServer) Addr() string {
	return s.addr.String()
}

// Close shuts the server down and waits for it to exit.
func (s *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
