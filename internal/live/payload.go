package live

import (
	"encoding/json"
	"fmt"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/notebook"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Event names.
const (
	EventSnapshot     = "document:snapshot"
	EventStatus       = "cell:status"
	EventDependency   = "cell:dependency"
	EventRenderParams = "cell:render-params"
	EventError        = "cell:error"

	CommandInsert = "cell:insert"
	CommandUpdate = "cell:update"
	CommandDelete = "cell:delete"
	CommandMove   = "cell:move"
	CommandRun    = "cell:run"
	CommandRerun  = "document:rerun"
)

// CellPayload is the wire form of notebook.CellView.
type CellPayload struct {
	ID           string      `json:"id"`
	Kind         string      `json:"kind"`
	Source       string      `json:"source"`
	Status       string      `json:"status,omitempty"`
	Step         int         `json:"step,omitempty"`
	Exports      []string    `json:"exports,omitempty"`
	Imports      []string    `json:"imports,omitempty"`
	RenderParams []string    `json:"renderParams,omitempty"`
	Result       cell.Record `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// SnapshotPayload is the wire form of notebook.Snapshot.
type SnapshotPayload struct {
	Cells   []CellPayload `json:"cells"`
	Current string        `json:"current,omitempty"`
	Step    int           `json:"step"`
}

// StatusPayload announces a status change.
type StatusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Step   int    `json:"step"`
}

// CellPayloadRef names a cell, optionally with its rendered default export.
type CellPayloadRef struct {
	ID       string          `json:"id"`
	Rendered json.RawMessage `json:"rendered,omitempty"`
}

// ErrorPayload carries the error shown for a cell; empty means cleared.
type ErrorPayload struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Command is the union of all command arguments.
type Command struct {
	ID     string `json:"id,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Source string `json:"source,omitempty"`
}

// Reply acknowledges a command.
type Reply struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func newSnapshotPayload(snap notebook.Snapshot) SnapshotPayload {
	out := SnapshotPayload{Cells: make([]CellPayload, 0, len(snap.Cells)), Current: snap.Current.String(), Step: snap.Step}
	for _, v := range snap.Cells {
		out.Cells = append(out.Cells, newCellPayload(v))
	}
	return out
}

func newCellPayload(v notebook.CellView) CellPayload {
	p := CellPayload{
		ID:           v.ID.String(),
		Kind:         v.Kind.String(),
		Source:       v.Source,
		Exports:      v.Exports,
		Imports:      v.Imports,
		RenderParams: v.RenderParams,
		Result:       v.Result,
	}
	if v.Kind == cell.Code {
		p.Status, p.Step = v.Status.String(), v.Step
	}
	if v.Err != nil {
		p.Error = v.Err.Error()
	}
	return p
}

func renderedJSON(v cty.Value) (json.RawMessage, error) {
	if v.IsNull() {
		return nil, nil
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	return b, nil
}

// decodeCommand converts the first event argument, as decoded by the
// socket.io parser, into a Command.
func decodeCommand(args []any) (Command, error) {
	var cmd Command
	if len(args) == 0 {
		return cmd, nil
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return cmd, fmt.Errorf("malformed command: %w", err)
	}
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return cmd, fmt.Errorf("malformed command: %w", err)
	}
	return cmd, nil
}

func (c Command) cellID() (cellid.ID, error) {
	return cellid.Parse(c.ID)
}

func (c Command) index() int {
	if c.Index == nil {
		return -1
	}
	return *c.Index
}
