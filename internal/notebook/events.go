package notebook

import (
	"sync"

	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/scheduler"
)

// EventKind identifies a notebook event.
type EventKind int

const (
	// DocumentChanged means cells were added, removed, moved or edited.
	DocumentChanged EventKind = iota
	// StatusChanged means a code cell's evaluation status or step changed.
	StatusChanged
	// DependencyUpdated is forwarded from the dependency graph.
	DependencyUpdated
	// RenderParamsUpdated is forwarded from the dependency graph.
	RenderParamsUpdated
	// ErrorChanged means the error shown for a cell appeared, changed or
	// cleared.
	ErrorChanged
)

func (k EventKind) String() string {
	switch k {
	case DocumentChanged:
		return "document-changed"
	case StatusChanged:
		return "status-changed"
	case DependencyUpdated:
		return "dependency-updated"
	case RenderParamsUpdated:
		return "render-params-updated"
	case ErrorChanged:
		return "error-changed"
	default:
		return "unknown"
	}
}

// Event is a notification delivered to observers.
type Event struct {
	Kind EventKind
	// Cell is empty for DocumentChanged.
	Cell   cellid.ID
	Status scheduler.Status
	Step   int
	Err    error
}

// Observer receives notebook events. Notify is never called with the
// notebook's mutex held, so observers may call back into the notebook.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(ev Event) { f(ev) }

type subscription struct {
	id  int
	obs Observer
}

type observers struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

func (o *observers) add(obs Observer) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.subs = append(o.subs, subscription{id: o.next, obs: obs})
	return o.next
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			return
		}
	}
}

func (o *observers) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	o.mu.RLock()
	subs := append([]subscription(nil), o.subs...)
	o.mu.RUnlock()
	for _, ev := range events {
		for _, s := range subs {
			s.obs.Notify(ev)
		}
	}
}

// Subscribe registers obs and returns a function that unregisters it.
func (n *Notebook) Subscribe(obs Observer) (unsubscribe func()) {
	id := n.observers.add(obs)
	return func() { n.observers.remove(id) }
}

// reported is the last status and error observers were told about.
type reported struct {
	status scheduler.Status
	step   int
	err    string
	seen   bool
}

func (n *Notebook) emit(ev Event) {
	n.pending = append(n.pending, ev)
}

// sync emits StatusChanged and ErrorChanged events for every cell whose
// state differs from what was last reported. Callers hold n.mu.
func (n *Notebook) sync() {
	for _, id := range n.order {
		prev := n.reported[id]
		next := reported{seen: true}
		if st, ok := n.sched.State(id); ok {
			next.status, next.step = st.Status, st.Step
		}
		err := n.cellError(id)
		if err != nil {
			next.err = err.Error()
		}

		if _, isCode := n.sched.State(id); isCode && (!prev.seen || prev.status != next.status || prev.step != next.step) {
			n.emit(Event{Kind: StatusChanged, Cell: id, Status: next.status, Step: next.step})
		}
		if prev.err != next.err {
			n.emit(Event{Kind: ErrorChanged, Cell: id, Err: err})
		}
		n.reported[id] = next
	}
	for id := range n.reported {
		if _, ok := n.cells[id]; !ok {
			delete(n.reported, id)
		}
	}
}
