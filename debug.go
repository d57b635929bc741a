package shelfatlas

import (
	"fmt"
	"log"
	"os"
)

// globalDebug gates diagnostic output for allocators, libraries and loaders.
// Everything here is single-threaded, so a plain bool is enough.
var globalDebug bool

// SetDebugMode enables or disables debug logging. When enabled, shelf
// creation and reclamation, atlas creation, texture placement and stale
// handle lookups are logged to stderr.
func SetDebugMode(enabled bool) {
	globalDebug = enabled
}

// DebugMode reports whether debug logging is enabled.
func DebugMode() bool { return globalDebug }

func debugf(format string, args ...any) {
	log.Printf("shelfatlas: "+format, args...)
}

// AllocatorStats is a point-in-time summary of a ShelfAllocator.
type AllocatorStats struct {
	Shelves      int
	EmptyShelves int
	HeadRoom     int
	StoredRects  int
	// UsedHeight is the summed height of all live shelves.
	UsedHeight int
}

// Stats returns a snapshot of the allocator's bookkeeping.
func (a *ShelfAllocator) Stats() AllocatorStats {
	st := AllocatorStats{
		Shelves:  len(a.shelves),
		HeadRoom: a.headRoom,
	}
	for i := range a.shelves {
		s := &a.shelves[i]
		st.UsedHeight += s.height
		st.StoredRects += s.StoredRects()
		if s.IsEmpty() {
			st.EmptyShelves++
		}
	}
	return st
}

// debugLog prints allocator stats to stderr.
func (a *ShelfAllocator) debugLog(label string) {
	if !globalDebug {
		return
	}
	st := a.Stats()
	_, _ = fmt.Fprintf(os.Stderr,
		"[shelfatlas] %s: shelves: %d (%d empty) | used height: %d | headroom: %d | rects: %d\n",
		label, st.Shelves, st.EmptyShelves, st.UsedHeight, st.HeadRoom, st.StoredRects)
}

// checkInvariants verifies the allocator's internal bookkeeping: shelf
// heights plus headroom cover the page, shelves are stacked without gaps, and
// the height index holds exactly one ordered key per live shelf.
func (a *ShelfAllocator) checkInvariants() error {
	sum := 0
	for i := range a.shelves {
		s := &a.shelves[i]
		if s.yOffs != sum {
			return fmt.Errorf("shelf %d: y offset %d, want %d", i, s.yOffs, sum)
		}
		sum += s.height
	}
	if sum+a.headRoom != a.height {
		return fmt.Errorf("shelf heights %d + headroom %d != page height %d", sum, a.headRoom, a.height)
	}
	if len(a.sorted) != len(a.shelves) {
		return fmt.Errorf("height index has %d keys for %d shelves", len(a.sorted), len(a.shelves))
	}
	for i, key := range a.sorted {
		if key.index < 0 || key.index >= len(a.shelves) {
			return fmt.Errorf("height index key %d references shelf %d", i, key.index)
		}
		if a.shelves[key.index].height != key.height {
			return fmt.Errorf("height index key %d: height %d, shelf has %d", i, key.height, a.shelves[key.index].height)
		}
		if i > 0 && compareShelfKeys(a.sorted[i-1], key) >= 0 {
			return fmt.Errorf("height index out of order at %d", i)
		}
	}
	return nil
}

// VerifyLayout checks a set of resident placements against the allocator:
// every rect must lie inside the shelf it is addressed to, and no two rects
// may overlap.
func VerifyLayout(a *ShelfAllocator, ptrs []StoragePtr) error {
	for i, p := range ptrs {
		s := a.Shelf(p.ShelfID)
		if s == nil {
			return fmt.Errorf("%w: rect %d %v addresses missing shelf %d", ErrOutOfShelf, i, p.Rect, p.ShelfID)
		}
		r := p.Rect
		if r.X < 0 || r.Right() > s.width || r.Y != s.yOffs || r.Height > s.height {
			return fmt.Errorf("%w: rect %d %v, shelf %d at y=%d is %dx%d",
				ErrOutOfShelf, i, r, p.ShelfID, s.yOffs, s.width, s.height)
		}
		if p.BucketID < 0 || p.BucketID >= len(s.buckets) {
			return fmt.Errorf("%w: rect %d addresses missing bucket %d", ErrOutOfShelf, i, p.BucketID)
		}
		b := &s.buckets[p.BucketID]
		if r.X < b.xOffs || r.Right() > b.xOffs+b.width {
			return fmt.Errorf("%w: rect %d %v leaves bucket %d", ErrOutOfShelf, i, r, p.BucketID)
		}
	}
	for i := range ptrs {
		for j := i + 1; j < len(ptrs); j++ {
			if ptrs[i].Rect.Overlaps(ptrs[j].Rect) {
				return fmt.Errorf("%w: %v and %v", ErrOverlap, ptrs[i].Rect, ptrs[j].Rect)
			}
		}
	}
	return nil
}
