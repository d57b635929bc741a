package shelfatlas

import (
	"cmp"
	"fmt"
	"slices"
)

// DefaultExcessHeightThreshold is used by DefaultConfig.
const DefaultExcessHeightThreshold = 0.7

// shelfKey orders shelves by height, then by index (older shelves first).
type shelfKey struct {
	height int
	index  int
}

func compareShelfKeys(a, b shelfKey) int {
	if c := cmp.Compare(a.height, b.height); c != 0 {
		return c
	}
	return cmp.Compare(a.index, b.index)
}

// ShelfAllocator packs rectangles into a width×height page using a stack of
// shelves that grows downward from y=0. Shelves are sized to the first
// rectangle that opens them and are only reclaimed from the top of the stack.
//
// A ShelfAllocator is not safe for concurrent use; it is meant to be owned by
// the thread that uploads textures.
type ShelfAllocator struct {
	width      int
	height     int
	bucketSize int
	threshold  float64

	// shelves is indexed by shelf id; ids stay stable until the shelf is
	// popped from the end.
	shelves []Shelf
	// sorted holds one key per live shelf, kept in step with shelves.
	sorted   []shelfKey
	headRoom int
	nextGen  uint32
}

// NewShelfAllocator returns an allocator for a width×height page split into
// buckets of bucketSize. excessHeightThreshold must be in (0, 1]: a shelf of
// height H is considered too tall for a rect of height h when
// H*excessHeightThreshold > h, in which case opening a new exact-height shelf
// is tried first.
func NewShelfAllocator(width, height, bucketSize int, excessHeightThreshold float64) (*ShelfAllocator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrPageSize, width, height)
	}
	if bucketSize <= 0 || width%bucketSize != 0 {
		return nil, fmt.Errorf("%w: width %d, bucket size %d", ErrBucketSize, width, bucketSize)
	}
	if !(excessHeightThreshold > 0 && excessHeightThreshold <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrThreshold, excessHeightThreshold)
	}
	return &ShelfAllocator{
		width:      width,
		height:     height,
		bucketSize: bucketSize,
		threshold:  excessHeightThreshold,
		headRoom:   height,
	}, nil
}

// CanFit reports whether a w×h rectangle could ever be placed on an empty
// page of this allocator.
func (a *ShelfAllocator) CanFit(w, h int) bool {
	return w > 0 && h > 0 && w <= a.bucketSize && h <= a.height
}

// InsertRect places ptr.Rect and fills in its coordinates and addressing
// fields. It returns false when the page has no room left, or when the rect
// can never fit (see CanFit); ptr is left untouched in both cases.
func (a *ShelfAllocator) InsertRect(ptr *StoragePtr) bool {
	h := ptr.Rect.Height
	if !a.CanFit(ptr.Rect.Width, h) {
		return false
	}

	// Shelves shorter than h can be skipped outright.
	start, _ := slices.BinarySearchFunc(a.sorted, shelfKey{height: h, index: -1}, compareShelfKeys)
	for _, key := range a.sorted[start:] {
		if float64(key.height)*a.threshold > float64(h) {
			// Too much wasted height; prefer a fresh exact-fit shelf.
			if a.putIntoNewShelf(ptr) {
				return true
			}
		}
		if a.shelves[key.index].InsertRect(ptr) {
			ptr.ShelfID = key.index
			return true
		}
	}
	return a.putIntoNewShelf(ptr)
}

// Remove releases a rectangle previously placed by InsertRect. When that
// empties the topmost shelf, it and every empty shelf directly below it are
// popped and their height returned to the headroom. Empty shelves further
// down the stack stay allocated.
//
// Remove returns false, without side effects, for tokens that do not address
// a live rectangle (already removed, or pointing at a shelf that has since
// been reclaimed).
func (a *ShelfAllocator) Remove(ptr StoragePtr) bool {
	id := ptr.ShelfID
	if id < 0 || id >= len(a.shelves) {
		return false
	}
	ok, empty := a.shelves[id].release(ptr)
	if !ok {
		return false
	}
	if empty && id == len(a.shelves)-1 {
		for len(a.shelves) > 0 && a.shelves[len(a.shelves)-1].IsEmpty() {
			a.popShelf()
		}
	}
	return true
}

// putIntoNewShelf opens a shelf of exactly ptr.Rect.Height and places ptr in
// it. Callers have already checked CanFit, so the insert cannot miss.
func (a *ShelfAllocator) putIntoNewShelf(ptr *StoragePtr) bool {
	id, ok := a.createShelf(ptr.Rect.Height)
	if !ok {
		return false
	}
	if !a.shelves[id].InsertRect(ptr) {
		return false
	}
	ptr.ShelfID = id
	return true
}

func (a *ShelfAllocator) createShelf(height int) (int, bool) {
	if a.headRoom < height {
		return -1, false
	}
	yOffs := 0
	if n := len(a.shelves); n > 0 {
		top := &a.shelves[n-1]
		yOffs = top.yOffs + top.height
	}
	a.nextGen++
	id := len(a.shelves)
	a.shelves = append(a.shelves, newShelf(a.width, height, a.bucketSize, yOffs, a.nextGen))
	a.headRoom -= height

	key := shelfKey{height: height, index: id}
	pos, _ := slices.BinarySearchFunc(a.sorted, key, compareShelfKeys)
	a.sorted = slices.Insert(a.sorted, pos, key)

	if globalDebug {
		debugf("opened shelf %d: height %d at y=%d, headroom %d", id, height, yOffs, a.headRoom)
	}
	return id, true
}

func (a *ShelfAllocator) popShelf() {
	id := len(a.shelves) - 1
	height := a.shelves[id].height
	if pos, found := slices.BinarySearchFunc(a.sorted, shelfKey{height: height, index: id}, compareShelfKeys); found {
		a.sorted = slices.Delete(a.sorted, pos, pos+1)
	}
	a.shelves[id] = Shelf{}
	a.shelves = a.shelves[:id]
	a.headRoom += height

	if globalDebug {
		debugf("reclaimed shelf %d: height %d, headroom %d", id, height, a.headRoom)
	}
}

// StoredRects returns the number of resident rectangles.
func (a *ShelfAllocator) StoredRects() int {
	n := 0
	for i := range a.shelves {
		n += a.shelves[i].StoredRects()
	}
	return n
}

// HeadRoom returns the unclaimed height below the last shelf.
func (a *ShelfAllocator) HeadRoom() int { return a.headRoom }

// ShelfCount returns the number of live shelves, empty ones included.
func (a *ShelfAllocator) ShelfCount() int { return len(a.shelves) }

// Shelf returns shelf i, or nil when i is out of range. The pointer is only
// valid until the next InsertRect or Remove.
func (a *ShelfAllocator) Shelf(i int) *Shelf {
	if i < 0 || i >= len(a.shelves) {
		return nil
	}
	return &a.shelves[i]
}

// Width returns the page width.
func (a *ShelfAllocator) Width() int { return a.width }

// Height returns the page height.
func (a *ShelfAllocator) Height() int { return a.height }

// BucketSize returns the bucket width, which is also the widest rect accepted.
func (a *ShelfAllocator) BucketSize() int { return a.bucketSize }

// ExcessHeightThreshold returns the configured threshold.
func (a *ShelfAllocator) ExcessHeightThreshold() float64 { return a.threshold }
