package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/notegrid/internal/ctxlog"
)

// Run loads the document, evaluates it top to bottom and prints every code
// cell's result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.DocumentPath == "" {
		return errors.New("a document path is required")
	}
	if err := a.Load(ctx); err != nil {
		return err
	}

	a.logger.Info("🚀 Evaluating document...")
	if err := a.nb.Settle(ctx); err != nil {
		return fmt.Errorf("evaluation interrupted: %w", err)
	}
	snap := a.nb.Snapshot()
	a.logger.Info("🏁 Evaluation finished.", "cells", len(snap.Cells), "steps", snap.Step)

	if failed := writeSnapshot(a.outW, snap); failed > 0 {
		return fmt.Errorf("%d cell(s) failed", failed)
	}
	return nil
}
