package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type healthStatus struct {
	Status  string `json:"status"`
	Cells   int    `json:"cells"`
	Clients int    `json:"clients"`
}

// healthHandler reports liveness together with the document size and the
// number of connected live clients.
func (a *App) healthHandler(clients func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		status := healthStatus{Status: "ok", Cells: len(a.nb.Cells())}
		if clients != nil {
			status.Clients = clients()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			a.logger.Warn("Failed to write health status.", "error", err)
		}
	}
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func (a *App) serveHTTP(ctx context.Context, name string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(fmt.Sprintf("%s server starting", name), "address", srv.Addr)
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server failed: %w", name, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.logger.Info(fmt.Sprintf("Shutting down %s server...", name))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown failed: %w", name, err)
	}
	a.logger.Debug(fmt.Sprintf("%s server shut down gracefully.", name))
	return nil
}
