package shelfatlas

import "github.com/bits-and-blooms/bitset"

// Bucket is a fixed-width column of a shelf. Rectangles are placed left to
// right and space is only reclaimed once every rectangle placed since the
// last reset has been removed again.
type Bucket struct {
	xOffs          int
	width          int
	remainingWidth int
	slotsUsed      int
	slotsRemoved   int

	// epoch counts resets; tokens from an earlier epoch are stale.
	epoch   uint32
	removed *bitset.BitSet
}

// NewBucket returns an empty bucket of the given width starting at xOffs.
func NewBucket(width, xOffs int) Bucket {
	return Bucket{
		xOffs:          xOffs,
		width:          width,
		remainingWidth: width,
	}
}

// InsertRect places ptr.Rect at the next free x position. On success
// ptr.Rect.X, ptr.SlotID and ptr.Epoch are set. On failure ptr is untouched.
func (b *Bucket) InsertRect(ptr *StoragePtr) bool {
	w := ptr.Rect.Width
	if w <= 0 || b.remainingWidth < w {
		return false
	}
	ptr.Rect.X = b.xOffs + b.width - b.remainingWidth
	ptr.SlotID = b.slotsUsed
	ptr.Epoch = b.epoch
	b.remainingWidth -= w
	b.slotsUsed++
	return true
}

// RemoveRect releases the slot addressed by ptr. It returns true only on the
// removal that empties the bucket, which also resets it for reuse.
func (b *Bucket) RemoveRect(ptr StoragePtr) bool {
	_, emptied := b.release(ptr)
	return emptied
}

// release reports whether ptr addressed a live slot and whether removing it
// emptied the bucket.
func (b *Bucket) release(ptr StoragePtr) (ok, emptied bool) {
	slot := ptr.SlotID
	if ptr.Epoch != b.epoch || slot < 0 || slot >= b.slotsUsed {
		return false, false
	}
	if b.removed == nil {
		b.removed = bitset.New(uint(b.slotsUsed))
	}
	if b.removed.Test(uint(slot)) {
		return false, false
	}
	b.removed.Set(uint(slot))
	b.slotsRemoved++
	if b.slotsRemoved < b.slotsUsed {
		return true, false
	}
	b.remainingWidth = b.width
	b.slotsUsed = 0
	b.slotsRemoved = 0
	b.epoch++
	b.removed.ClearAll()
	return true, true
}

// SlotsUsed returns the number of slots handed out since the last reset.
func (b *Bucket) SlotsUsed() int { return b.slotsUsed }

// StoredRects returns the number of rectangles currently resident.
func (b *Bucket) StoredRects() int { return b.slotsUsed - b.slotsRemoved }

// RemainingWidth returns the width still available to the right.
func (b *Bucket) RemainingWidth() int { return b.remainingWidth }

// XOffs returns the bucket's left edge within the shelf.
func (b *Bucket) XOffs() int { return b.xOffs }

// Width returns the fixed bucket width.
func (b *Bucket) Width() int { return b.width }
