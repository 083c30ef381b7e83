package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"factoryqc/internal/bootstrap/config"
	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quality API over HTTP",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		cfg := deps.App.Config.HTTP
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Addr
		}

		logCtx := logging.WithAttrs(cmd.Context(), slog.String("component", "cmd.serve"), slog.String("addr", addr))
		ctx, stop := signal.NotifyContext(logCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := newHTTPServer(logCtx, addr, deps.Handler, cfg)

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening")
			serveErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errs.Wrap(err, "listen and serve")
		case <-ctx.Done():
		}

		logging.Info(ctx, "shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

// newHTTPServer builds the listener. Request contexts derive from parent but
// are not canceled with it, so Shutdown can drain in-flight requests after a
// signal.
func newHTTPServer(parent context.Context, addr string, handler http.Handler, cfg config.HTTPConfig) *http.Server {
	base := context.WithoutCancel(parent)
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return base },
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overrides http.addr")
}
