package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/live"
)

// Watch prints the events of a running notebook server, one per line, until
// ctx is done.
func (a *App) Watch(ctx context.Context, url string, connectTimeout time.Duration) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	return live.Watch(ctx, url, connectTimeout, func(msg live.Message) {
		fmt.Fprintf(a.outW, "%s %s\n", msg.Event, msg.Payload)
	})
}
