package shelfatlas

import "fmt"

// Shelf is a horizontal strip of a page with a fixed height and y offset,
// split into equally sized buckets.
type Shelf struct {
	buckets    []Bucket
	width      int
	height     int
	bucketSize int
	yOffs      int
	gen        uint32
}

// NewShelf creates a shelf of width×height at yOffs. width must be a positive
// multiple of bucketSize.
func NewShelf(width, height, bucketSize, yOffs int) (*Shelf, error) {
	if bucketSize <= 0 || width <= 0 || width%bucketSize != 0 {
		return nil, fmt.Errorf("%w: width %d, bucket size %d", ErrBucketSize, width, bucketSize)
	}
	s := newShelf(width, height, bucketSize, yOffs, 0)
	return &s, nil
}

// newShelf skips validation; the allocator checks its dimensions once.
func newShelf(width, height, bucketSize, yOffs int, gen uint32) Shelf {
	n := width / bucketSize
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i] = NewBucket(bucketSize, i*bucketSize)
	}
	return Shelf{
		buckets:    buckets,
		width:      width,
		height:     height,
		bucketSize: bucketSize,
		yOffs:      yOffs,
		gen:        gen,
	}
}

// InsertRect places ptr.Rect in the first bucket with room, scanning buckets
// left to right. Rectangles taller than the shelf are rejected.
func (s *Shelf) InsertRect(ptr *StoragePtr) bool {
	if ptr.Rect.Height > s.height {
		return false
	}
	for i := range s.buckets {
		if s.buckets[i].InsertRect(ptr) {
			ptr.BucketID = i
			ptr.Rect.Y = s.yOffs
			ptr.ShelfGen = s.gen
			return true
		}
	}
	return false
}

// RemoveRect releases ptr. It returns true when the removal reset its bucket
// and left the whole shelf empty.
func (s *Shelf) RemoveRect(ptr StoragePtr) bool {
	_, empty := s.release(ptr)
	return empty
}

func (s *Shelf) release(ptr StoragePtr) (ok, empty bool) {
	if ptr.ShelfGen != s.gen || ptr.BucketID < 0 || ptr.BucketID >= len(s.buckets) {
		return false, false
	}
	ok, emptied := s.buckets[ptr.BucketID].release(ptr)
	return ok, emptied && s.IsEmpty()
}

// IsEmpty reports whether every bucket is in its reset state.
func (s *Shelf) IsEmpty() bool {
	for i := range s.buckets {
		if s.buckets[i].SlotsUsed() > 0 {
			return false
		}
	}
	return true
}

// StoredRects returns the number of resident rectangles across all buckets.
func (s *Shelf) StoredRects() int {
	n := 0
	for i := range s.buckets {
		n += s.buckets[i].StoredRects()
	}
	return n
}

// Width returns the shelf width.
func (s *Shelf) Width() int { return s.width }

// Height returns the shelf height.
func (s *Shelf) Height() int { return s.height }

// YOffs returns the shelf's top edge within the page.
func (s *Shelf) YOffs() int { return s.yOffs }

// BucketCount returns the number of buckets.
func (s *Shelf) BucketCount() int { return len(s.buckets) }

// Bucket returns bucket i. The pointer is only valid until the next mutating
// call on the owning allocator.
func (s *Shelf) Bucket(i int) *Bucket { return &s.buckets[i] }
