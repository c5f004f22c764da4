package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/docfile"
	"github.com/vk/notegrid/internal/hclcell"
	"github.com/vk/notegrid/internal/notebook"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	dialect *hclcell.Dialect
	nb      *notebook.Notebook
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. The notebook starts empty; Load fills it from the
// configured document.
func NewApp(outW, logW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	dialect := hclcell.New(hclcell.WithLogger(logger.With("component", "hclcell")))
	nb := notebook.New(dialect, dialect, dialect,
		notebook.WithLogger(logger.With("component", "notebook")),
		notebook.WithAutoRefresh(config.AutoRefresh),
	)
	logger.Debug("Notebook created.", "modules", dialect.Modules(), "auto_refresh", config.AutoRefresh)

	return &App{
		outW:    outW,
		logger:  logger,
		config:  config,
		dialect: dialect,
		nb:      nb,
	}
}

// Notebook returns the application's notebook. This is primarily for testing.
func (a *App) Notebook() *notebook.Notebook {
	return a.nb
}

// Load reads the configured document into the notebook. Without a document
// path the notebook stays empty.
func (a *App) Load(ctx context.Context) error {
	if a.config.DocumentPath == "" {
		a.logger.Debug("No document configured, starting empty.")
		return nil
	}
	cells, err := docfile.Load(ctxlog.WithLogger(ctx, a.logger), a.config.DocumentPath)
	if err != nil {
		return err
	}
	if err := a.nb.Load(cells); err != nil {
		return fmt.Errorf("failed to load %s: %w", a.config.DocumentPath, err)
	}
	a.logger.Info("Document loaded.", "path", a.config.DocumentPath, "cells", len(cells))
	return nil
}

// Save writes the notebook back to the configured document.
func (a *App) Save(ctx context.Context) error {
	if a.config.DocumentPath == "" {
		return fmt.Errorf("no document path configured")
	}
	return docfile.Save(ctxlog.WithLogger(ctx, a.logger), a.config.DocumentPath, a.nb.Cells())
}

// Close stops every evaluation still in flight.
func (a *App) Close() {
	a.nb.Close()
}
