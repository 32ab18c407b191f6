package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/maruel/portalemu/internal/store"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the fixture file on change and serve metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Fixtures == "" {
				return errors.New("watch requires --fixtures")
			}
			e, err := opts.newEnv()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), opts.cfg.Fixtures, opts.cfg.MetricsAddr, e)
		},
	}
}

// runWatch blocks until ctx is done or the metrics server fails.
func runWatch(ctx context.Context, path, metricsAddr string, e *env) error {
	onReload := func(f *store.Fixtures) {
		for _, n := range f.Names() {
			slog.DebugContext(ctx, "collection", "name", n, "rows", e.store.Len(n))
		}
	}
	if err := store.WatchFixtures(ctx, path, e.store, onReload); err != nil {
		return fmt.Errorf("failed to watch fixtures: %w", err)
	}
	slog.InfoContext(ctx, "Watching fixtures", "path", path, "collections", len(e.store.Names()))
	if metricsAddr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())
	srv := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Serving metrics", "addr", metricsAddr)
		serverErr <- srv.ListenAndServe()
	}()
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Metrics server stopped")
	}
	return nil
}
