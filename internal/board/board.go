// Package board tracks the render slots of one submission. Every lookup
// owns the slot at its index; a slot starts Pending and is resolved
// exactly once. Lookups finish in any order, so every write addresses a
// single index and never touches its neighbours.
package board

import (
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/lc/dnsq/internal/query"
	"github.com/lc/dnsq/pkg/api"
)

// State of a slot.
type State int

const (
	Pending State = iota
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "pending"
}

// Outcome is the result of one lookup. Err is nil on success; on failure
// Label holds the raw target and Records is empty.
type Outcome struct {
	Label      string
	RecordType string
	Records    []api.Record
	Err        error
}

// Failed reports whether the lookup failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Slot is the render state at one index.
type Slot struct {
	Index   int
	Request query.Request
	State   State
	Outcome Outcome
}

var _ Board = (*MemoryBoard)(nil)

// Board is the addressable set of slots for the current submission.
type Board interface {
	// Reset drops every slot.
	Reset()
	// Insert adds a Pending slot at i for req.
	Insert(i int, req query.Request) Slot
	// Resolve moves slot i to Resolved. It returns false when the slot
	// does not exist or was already resolved.
	Resolve(i int, o Outcome) (Slot, bool)
	// Get returns a copy of slot i.
	Get(i int) (Slot, bool)
	// Snapshot returns a copy of every slot ordered by index.
	Snapshot() []Slot
	// Pending returns the number of unresolved slots.
	Pending() int64
}

// MemoryBoard is a Board safe for concurrent use.
type MemoryBoard struct {
	mu       sync.RWMutex
	slots    map[int]*Slot
	pending  atomic.Int64
	resolved atomic.Int64
}

// New returns an empty board.
func New() *MemoryBoard {
	return &MemoryBoard{slots: make(map[int]*Slot)}
}

// Reset drops every slot.
func (b *MemoryBoard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots = make(map[int]*Slot)
	b.pending.Store(0)
	b.resolved.Store(0)
}

// Insert adds a Pending slot at i, replacing whatever was there.
func (b *MemoryBoard) Insert(i int, req query.Request) Slot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.slots[i]; ok && cur.State == Pending {
		b.pending.Dec()
	} else if ok {
		b.resolved.Dec()
	}
	s := &Slot{Index: i, Request: req, State: Pending}
	b.slots[i] = s
	b.pending.Inc()
	return *s
}

// Resolve stores the outcome of slot i.
func (b *MemoryBoard) Resolve(i int, o Outcome) (Slot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.slots[i]
	if !ok || cur.State != Pending {
		return Slot{}, false
	}
	cur.State = Resolved
	cur.Outcome = o
	b.pending.Dec()
	b.resolved.Inc()
	return *cur, true
}

// Get returns a copy of slot i.
func (b *MemoryBoard) Get(i int) (Slot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cur, ok := b.slots[i]
	if !ok {
		return Slot{}, false
	}
	return *cur, true
}

// Snapshot returns a copy of every slot ordered by index.
func (b *MemoryBoard) Snapshot() []Slot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Slot, 0, len(b.slots))
	for _, s := range b.slots {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Pending returns the number of unresolved slots.
func (b *MemoryBoard) Pending() int64 { return b.pending.Load() }

// Resolved returns the number of resolved slots.
func (b *MemoryBoard) Resolved() int64 { return b.resolved.Load() }
