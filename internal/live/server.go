package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/notebook"
	"github.com/zishang520/socket.io/v2/socket"
)

// Server broadcasts notebook events to socket.io clients and applies their
// editing commands.
type Server struct {
	logger  *slog.Logger
	nb      *notebook.Notebook
	io      *socket.Server
	clients atomic.Int64

	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for nb and subscribes it to nb's events.
func NewServer(nb *notebook.Notebook, opts ...Option) *Server {
	s := &Server{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		nb:     nb,
		io:     socket.NewServer(nil, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.onConnect(client)
	})
	s.unsubscribe = nb.Subscribe(s)
	return s
}

// Handler returns the socket.io HTTP handler, to be mounted at /socket.io/.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Close unsubscribes from the notebook and disconnects every client.
func (s *Server) Close() error {
	s.unsubscribe()
	done := make(chan error, 1)
	s.io.Close(func(err error) { done <- err })
	return <-done
}

func (s *Server) onConnect(client *socket.Socket) {
	logger := s.logger.With("sid", client.Id())
	s.clients.Add(1)
	logger.Info("Client connected.", "clients", s.Clients())

	client.On("disconnect", func(reason ...any) {
		s.clients.Add(-1)
		logger.Info("Client disconnected.", "reason", reason)
	})

	handlers := map[string]func(Command) (Reply, error){
		CommandInsert: s.insert,
		CommandUpdate: s.update,
		CommandDelete: s.delete,
		CommandMove:   s.move,
		CommandRun:    s.run,
		CommandRerun:  s.rerun,
	}
	for name, handle := range handlers {
		client.On(name, func(args ...any) {
			reply, err := s.dispatch(handle, args)
			if err != nil {
				logger.Warn("Command failed.", "command", name, "error", err)
				reply = Reply{Error: err.Error()}
			} else {
				logger.Debug("Command applied.", "command", name, "id", reply.ID)
			}
			if len(args) == 0 {
				return
			}
			if ack, ok := args[len(args)-1].(socket.Ack); ok {
				ack([]any{reply}, nil)
			}
		})
	}

	if err := client.Emit(EventSnapshot, newSnapshotPayload(s.nb.Snapshot())); err != nil {
		logger.Warn("Failed to send snapshot.", "error", err)
	}
}

func (s *Server) dispatch(handle func(Command) (Reply, error), args []any) (Reply, error) {
	if len(args) > 0 {
		if _, isAck := args[len(args)-1].(socket.Ack); isAck {
			args = args[:len(args)-1]
		}
	}
	cmd, err := decodeCommand(args)
	if err != nil {
		return Reply{}, err
	}
	return handle(cmd)
}

func (s *Server) insert(cmd Command) (Reply, error) {
	kind, ok := cell.ParseKind(cmd.Kind)
	if !ok {
		return Reply{}, fmt.Errorf("unknown cell kind %q", cmd.Kind)
	}
	id, err := s.nb.Insert(cmd.index(), kind, cmd.Source)
	if err != nil {
		return Reply{}, err
	}
	return Reply{OK: true, ID: id.String()}, nil
}

func (s *Server) update(cmd Command) (Reply, error) {
	id, err := cmd.cellID()
	if err != nil {
		return Reply{}, err
	}
	return Reply{OK: true, ID: cmd.ID}, s.nb.Update(id, cmd.Source)
}

func (s *Server) delete(cmd Command) (Reply, error) {
	id, err := cmd.cellID()
	if err != nil {
		return Reply{}, err
	}
	return Reply{OK: true, ID: cmd.ID}, s.nb.Delete(id)
}

func (s *Server) move(cmd Command) (Reply, error) {
	id, err := cmd.cellID()
	if err != nil {
		return Reply{}, err
	}
	if cmd.Index == nil {
		return Reply{}, errors.New("move needs an index")
	}
	return Reply{OK: true, ID: cmd.ID}, s.nb.Move(id, *cmd.Index)
}

func (s *Server) run(cmd Command) (Reply, error) {
	id, err := cmd.cellID()
	if err != nil {
		return Reply{}, err
	}
	return Reply{OK: true, ID: cmd.ID}, s.nb.Rerun(id)
}

func (s *Server) rerun(Command) (Reply, error) {
	s.nb.RerunAll()
	return Reply{OK: true}, nil
}

// Notify implements notebook.Observer.
func (s *Server) Notify(ev notebook.Event) {
	switch ev.Kind {
	case notebook.DocumentChanged:
		s.io.Emit(EventSnapshot, newSnapshotPayload(s.nb.Snapshot()))
	case notebook.StatusChanged:
		s.io.Emit(EventStatus, StatusPayload{ID: ev.Cell.String(), Status: ev.Status.String(), Step: ev.Step})
	case notebook.DependencyUpdated:
		s.io.Emit(EventDependency, CellPayloadRef{ID: ev.Cell.String()})
	case notebook.RenderParamsUpdated:
		ref := CellPayloadRef{ID: ev.Cell.String()}
		if v, err := s.nb.Render(context.Background(), ev.Cell); err == nil {
			if raw, err := renderedJSON(v); err == nil {
				ref.Rendered = raw
			}
		}
		s.io.Emit(EventRenderParams, ref)
	case notebook.ErrorChanged:
		p := ErrorPayload{ID: ev.Cell.String()}
		if ev.Err != nil {
			p.Error = ev.Err.Error()
		}
		s.io.Emit(EventError, p)
	}
}
