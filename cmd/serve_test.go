package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"factoryqc/internal/bootstrap/config"
	"factoryqc/internal/bootstrap/logging"
)

func TestHTTPServerDrainsInFlightRequestAfterSignal(t *testing.T) {
	parent, cancel := context.WithCancel(logging.WithAttrs(context.Background(), slog.String("component", "cmd.serve")))
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	seen := make(chan error, 1)
	var component string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		for _, attr := range logging.Attrs(r.Context()) {
			if attr.Key == "component" {
				component = attr.Value.String()
			}
		}
		seen <- r.Context().Err()
		w.WriteHeader(http.StatusNoContent)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := newHTTPServer(parent, ln.Addr().String(), handler, config.HTTPConfig{})
	go func() { _ = server.Serve(ln) }()

	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-started:
	case err := <-errCh:
		t.Fatalf("request failed before reaching handler: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("handler never started")
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- server.Shutdown(shutdownCtx) }()
	close(release)

	if err := <-seen; err != nil {
		t.Fatalf("request context canceled with the signal context: %v", err)
	}
	select {
	case resp := <-respCh:
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	}
	if err := <-shutdownErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if component != "cmd.serve" {
		t.Fatalf("request context lost logging attrs, component = %q", component)
	}
}
