package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/live"
	"golang.org/x/sync/errgroup"
)

// Serve loads the document and keeps it live: the notebook advances on every
// tick and browser clients follow it over socket.io. It returns when ctx is
// cancelled or one of the servers fails.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.Load(ctx); err != nil {
		return err
	}

	ls := live.NewServer(a.nb, live.WithLogger(a.logger.With("component", "live")))
	defer func() {
		if err := ls.Close(); err != nil {
			a.logger.Warn("Live server close failed.", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler(ls.Clients))
	mux.Handle("/socket.io/", ls.Handler())
	srv := &http.Server{Addr: a.config.Listen, Handler: mux}
	g.Go(func() error { return a.serveHTTP(gctx, "🛰️ Notebook", srv) })

	if a.config.HealthcheckPort > 0 {
		health := http.NewServeMux()
		health.Handle("/health", a.healthHandler(ls.Clients))
		hs := &http.Server{Addr: fmt.Sprintf(":%d", a.config.HealthcheckPort), Handler: health}
		g.Go(func() error { return a.serveHTTP(gctx, "🩺 Health check", hs) })
	} else {
		a.logger.Debug("Dedicated health check server disabled.")
	}

	g.Go(func() error {
		a.logger.Debug("Notebook loop starting.", "tick", a.config.Tick)
		return a.nb.Run(gctx, a.config.Tick)
	})

	err := g.Wait()
	a.nb.Close()
	if a.config.SaveOnExit && a.config.DocumentPath != "" {
		if saveErr := a.Save(context.WithoutCancel(ctx)); saveErr != nil {
			a.logger.Error("Failed to save document.", "error", saveErr)
			if err == nil {
				err = saveErr
			}
		} else {
			a.logger.Info("Document saved.", "path", a.config.DocumentPath)
		}
	}
	return err
}
