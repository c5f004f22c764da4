package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Message is one event received by Watch.
type Message struct {
	Event   string
	Payload json.RawMessage
}

// watchedEvents are the events Watch subscribes to.
var watchedEvents = []string{EventSnapshot, EventStatus, EventDependency, EventRenderParams, EventError}

// Watch connects to a notebook server and calls handle for every event until
// ctx is done or the connection fails.
func Watch(ctx context.Context, rawURL string, connectTimeout time.Duration, handle func(Message)) error {
	ctx = ctxlog.With(ctx, "url", rawURL)
	logger := ctxlog.FromContext(ctx)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Disconnecting socket client.")
		io.Disconnect()
	}()

	messages := make(chan Message, 64)
	failures := make(chan error, 1)
	connected := make(chan struct{}, 1)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected to notebook server.", "sid", io.Id())
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connection failed: %w", e)
			}
		}
		select {
		case failures <- err:
		default:
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		select {
		case failures <- fmt.Errorf("disconnected: %v", reason):
		default:
		}
	})
	for _, name := range watchedEvents {
		io.On(types.EventName(name), func(args ...any) {
			msg := Message{Event: name}
			if len(args) > 0 {
				raw, err := json.Marshal(args[0])
				if err != nil {
					logger.Warn("Dropping undecodable event.", "event", name, "error", err)
					return
				}
				msg.Payload = raw
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
			}
		})
	}

	io.Connect()

	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()
	select {
	case <-connected:
	case err := <-failures:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s waiting for connection", connectTimeout)
	case <-ctx.Done():
		return nil
	}

	for {
		select {
		case msg := <-messages:
			handle(msg)
		case err := <-failures:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
