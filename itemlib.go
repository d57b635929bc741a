package shelfatlas

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Handle is a generational reference into an ItemLib. The zero value is
// invalid: generation 0 is never issued.
type Handle struct {
	idx        uint16
	generation uint16
}

// InvalidHandle is the zero Handle.
var InvalidHandle = Handle{}

// NewHandle builds a handle from its parts.
func NewHandle(idx, generation uint16) Handle {
	return Handle{idx: idx, generation: generation}
}

// HandleFromValue unpacks a handle produced by Value.
func HandleFromValue(v uint32) Handle {
	return Handle{idx: uint16(v & 0xffff), generation: uint16(v >> 16)}
}

// Value packs the handle as generation<<16 | index. A packed value of zero is
// always invalid.
func (h Handle) Value() uint32 {
	return uint32(h.generation)<<16 | uint32(h.idx)
}

// IsValid reports whether h could refer to a slot. A valid handle may still
// be stale; only the library can tell.
func (h Handle) IsValid() bool { return h.generation != 0 }

// Index returns the slot index.
func (h Handle) Index() int { return int(h.idx) }

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint16 { return h.generation }

func (h Handle) String() string {
	if !h.IsValid() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.idx, h.generation)
}

// ItemWrapper is one ItemLib slot.
type ItemWrapper[T any] struct {
	Item       T
	Alive      bool
	Generation uint16
	name       string
}

// Name returns the key the slot was stored under, or "" for a dead slot.
func (w *ItemWrapper[T]) Name() string { return w.name }

// maxSlots is the number of indices a 16-bit handle can address.
const maxSlots = math.MaxUint16 + 1

// ItemLib is a named slot map handing out generational handles. Removed
// slots are reused LIFO; every reuse or replacement bumps the slot's
// generation so handles to the previous tenant stop resolving.
//
// The zero value is ready to use. ItemLib is not safe for concurrent use.
type ItemLib[T any] struct {
	ids   map[string]int
	items []ItemWrapper[T]
	free  []int
}

// NewItemLib returns an empty library.
func NewItemLib[T any]() *ItemLib[T] {
	return &ItemLib[T]{ids: make(map[string]int)}
}

func nextGeneration(g uint16) uint16 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}

// AddItem stores item under name. If name is already live its slot is
// overwritten and its generation bumped, invalidating handles to the previous
// item. Returns InvalidHandle when all 65536 slots are live.
func (l *ItemLib[T]) AddItem(name string, item T) Handle {
	if l.ids == nil {
		l.ids = make(map[string]int)
	}
	if idx, ok := l.ids[name]; ok {
		w := &l.items[idx]
		w.Item = item
		w.Alive = true
		w.Generation = nextGeneration(w.Generation)
		return Handle{idx: uint16(idx), generation: w.Generation}
	}

	var idx int
	if n := len(l.free); n > 0 {
		idx = l.free[n-1]
		l.free = l.free[:n-1]
		w := &l.items[idx]
		w.Item = item
		w.Alive = true
		w.Generation = nextGeneration(w.Generation)
		w.name = name
	} else {
		if len(l.items) >= maxSlots {
			if globalDebug {
				debugf("item library full, dropping %q", name)
			}
			return InvalidHandle
		}
		idx = len(l.items)
		l.items = append(l.items, ItemWrapper[T]{Item: item, Alive: true, Generation: 1, name: name})
	}
	l.ids[name] = idx
	return Handle{idx: uint16(idx), generation: l.items[idx].Generation}
}

// AddWithRandomKey stores item under a fresh random key and returns the
// handle together with the key.
func (l *ItemLib[T]) AddWithRandomKey(item T) (Handle, string) {
	key := uuid.NewString()
	return l.AddItem(key, item), key
}

// RemoveItem kills slot idx, frees it for reuse and forgets its name. Dead or
// out-of-range indices are ignored.
func (l *ItemLib[T]) RemoveItem(idx int) {
	if idx < 0 || idx >= len(l.items) || !l.items[idx].Alive {
		return
	}
	w := &l.items[idx]
	w.Alive = false
	delete(l.ids, w.name)
	w.name = ""
	l.free = append(l.free, idx)
}

// Remove kills the slot h refers to. Stale handles are ignored, so a handle
// kept past its item's removal can never remove the slot's next tenant.
func (l *ItemLib[T]) Remove(h Handle) bool {
	if l.Get(h) == nil {
		return false
	}
	l.RemoveItem(h.Index())
	return true
}

// RemoveByName kills the slot stored under name, if any.
func (l *ItemLib[T]) RemoveByName(name string) bool {
	idx, ok := l.ids[name]
	if !ok {
		return false
	}
	l.RemoveItem(idx)
	return true
}

// GetItem returns the live item at idx, or nil.
func (l *ItemLib[T]) GetItem(idx int) *T {
	if w := l.Wrapped(idx); w != nil {
		return &w.Item
	}
	return nil
}

// Get returns the item h refers to, or nil if h is invalid, the slot is dead,
// or the slot has moved on to a later generation.
func (l *ItemLib[T]) Get(h Handle) *T {
	if !h.IsValid() {
		return nil
	}
	w := l.Wrapped(h.Index())
	if w == nil || w.Generation != h.generation {
		if globalDebug && h.Index() < len(l.items) {
			debugf("stale %v: slot generation %d, alive %t",
				h, l.items[h.Index()].Generation, l.items[h.Index()].Alive)
		}
		return nil
	}
	return &w.Item
}

// GetCorpse returns the item stored at idx whether or not the slot is alive.
// A dead slot still holds its last item until the slot is reused.
func (l *ItemLib[T]) GetCorpse(idx int) *T {
	if idx < 0 || idx >= len(l.items) {
		return nil
	}
	return &l.items[idx].Item
}

// Wrapped returns the live slot at idx, or nil.
func (l *ItemLib[T]) Wrapped(idx int) *ItemWrapper[T] {
	if idx < 0 || idx >= len(l.items) || !l.items[idx].Alive {
		return nil
	}
	return &l.items[idx]
}

// HandleOf returns the handle for a live name, or InvalidHandle.
func (l *ItemLib[T]) HandleOf(name string) Handle {
	idx, ok := l.ids[name]
	if !ok {
		return InvalidHandle
	}
	return Handle{idx: uint16(idx), generation: l.items[idx].Generation}
}

// HandleAt returns the handle for live slot idx, or InvalidHandle.
func (l *ItemLib[T]) HandleAt(idx int) Handle {
	w := l.Wrapped(idx)
	if w == nil {
		return InvalidHandle
	}
	return Handle{idx: uint16(idx), generation: w.Generation}
}

// Generation returns the generation of live slot idx, or 0.
func (l *ItemLib[T]) Generation(idx int) uint16 {
	if w := l.Wrapped(idx); w != nil {
		return w.Generation
	}
	return 0
}

// FirstAlive returns the handle of the lowest live slot, or InvalidHandle.
func (l *ItemLib[T]) FirstAlive() Handle {
	for i := range l.items {
		if l.items[i].Alive {
			return Handle{idx: uint16(i), generation: l.items[i].Generation}
		}
	}
	return InvalidHandle
}

// Each calls fn for every live item in slot order until fn returns false.
func (l *ItemLib[T]) Each(fn func(h Handle, item *T) bool) {
	for i := range l.items {
		w := &l.items[i]
		if !w.Alive {
			continue
		}
		if !fn(Handle{idx: uint16(i), generation: w.Generation}, &w.Item) {
			return
		}
	}
}

// Len returns the number of slots, dead ones included.
func (l *ItemLib[T]) Len() int { return len(l.items) }

// Count returns the number of live items.
func (l *ItemLib[T]) Count() int { return len(l.items) - len(l.free) }

// IsEmpty reports whether no item is live.
func (l *ItemLib[T]) IsEmpty() bool { return l.Count() == 0 }

// FreeSlotCount returns the number of dead slots waiting for reuse.
func (l *ItemLib[T]) FreeSlotCount() int { return len(l.free) }

// SyncWith checks the library against an authoritative ordering of names,
// such as the one a server sends on connect. Every name must be present;
// the number of names living at a different slot than their position in
// order is returned. Missing names fail with ErrMissingItem.
func (l *ItemLib[T]) SyncWith(order []string) (int, error) {
	moved := 0
	for i, name := range order {
		idx, ok := l.ids[name]
		if !ok {
			return moved, fmt.Errorf("%w: %q", ErrMissingItem, name)
		}
		if idx != i {
			moved++
			if globalDebug {
				debugf("library item %q is at slot %d, expected %d", name, idx, i)
			}
		}
	}
	return moved, nil
}
