package shelfatlas

import (
	"errors"
	"fmt"
)

// Rect is an axis-aligned pixel rectangle inside an atlas page. The origin is
// the top-left corner with Y increasing downward. X and Y are assigned by the
// allocator; Width and Height come from the caller and are never modified.
type Rect struct {
	X, Y, Width, Height int
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Overlaps reports whether r and other share any pixel. Rectangles that only
// touch along an edge do not overlap.
func (r Rect) Overlaps(other Rect) bool {
	return r.X < other.Right() && other.X < r.Right() &&
		r.Y < other.Bottom() && other.Y < r.Bottom()
}

// Area returns Width*Height.
func (r Rect) Area() int { return r.Width * r.Height }

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// StoragePtr is the addressing token produced by a successful insert. It must
// be passed back unmodified to remove the rectangle again.
//
// ShelfGen and Epoch pin the token to one shelf tenant and one bucket reset
// cycle, so a token that was already removed, or that addresses a shelf index
// which has since been popped and recreated, is rejected instead of
// corrupting counters.
type StoragePtr struct {
	ShelfID  int
	BucketID int
	SlotID   int
	Rect     Rect
	ShelfGen uint32
	Epoch    uint32
}

// NewStoragePtr returns an unplaced StoragePtr for a w×h rectangle.
func NewStoragePtr(w, h int) StoragePtr {
	return StoragePtr{Rect: Rect{Width: w, Height: h}}
}

var (
	// ErrBucketSize is returned when a shelf width is not a positive multiple
	// of the bucket size.
	ErrBucketSize = errors.New("shelfatlas: width must be a positive multiple of bucket size")
	// ErrThreshold is returned for an excess height threshold outside (0, 1].
	ErrThreshold = errors.New("shelfatlas: excess height threshold must be in (0, 1]")
	// ErrPageSize is returned for non-positive or oversized page dimensions.
	ErrPageSize = errors.New("shelfatlas: invalid page size")
	// ErrInvalidSize is returned when an image has a zero or negative dimension.
	ErrInvalidSize = errors.New("shelfatlas: image has no pixels")
	// ErrTextureTooLarge is returned when an image can never fit on a page:
	// wider than a bucket or taller than the page.
	ErrTextureTooLarge = errors.New("shelfatlas: texture does not fit an atlas page")
	// ErrNoFreeLayer is returned when every allowed texture array is exhausted.
	ErrNoFreeLayer = errors.New("shelfatlas: no free texture layer")
	// ErrLibraryFull is returned when every handle index of a library is live.
	ErrLibraryFull = errors.New("shelfatlas: item library full")
	// ErrMissingItem is returned by ItemLib.SyncWith when a required name is absent.
	ErrMissingItem = errors.New("shelfatlas: library item missing")
	// ErrOverlap is returned by VerifyLayout when two live rects intersect.
	ErrOverlap = errors.New("shelfatlas: rects overlap")
	// ErrOutOfShelf is returned by VerifyLayout when a rect leaves its shelf.
	ErrOutOfShelf = errors.New("shelfatlas: rect outside its shelf")
)
