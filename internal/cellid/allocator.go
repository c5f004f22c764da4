package cellid

import "sync"

// Allocator hands out identifiers in strictly increasing order. An identifier
// is never handed out twice.
type Allocator struct {
	mu   sync.Mutex
	last int
}

// NewAllocator creates an allocator whose first identifier is `c1`.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns a fresh identifier.
func (a *Allocator) Next() ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return New(a.last)
}

// Observe records that id is in use, so that later calls to Next never
// return it. It is used when cells with existing identifiers are loaded.
func (a *Allocator) Observe(id ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seq := id.Seq(); seq > a.last {
		a.last = seq
	}
}
