// Package shelfatlas packs variable-sized images into fixed-size texture
// pages for [Ebitengine] games and hands out generational handles to them.
//
// # Shelf allocator
//
// [ShelfAllocator] places rectangles on a page by stacking horizontal
// shelves from the top down. Each shelf is exactly as tall as the rectangle
// that opened it and is split into fixed-width buckets filled left to right:
//
//	alloc, _ := shelfatlas.NewShelfAllocator(1024, 1024, 128, 0.7)
//	ptr := shelfatlas.NewStoragePtr(48, 32)
//	if !alloc.InsertRect(&ptr) {
//		// page full: open another page and retry there
//	}
//	// upload pixels to ptr.Rect, keep ptr to release the space later
//	alloc.Remove(ptr)
//
// Shelves are tried shortest first, oldest first among equal heights. When
// the best shelf is much taller than the rectangle (see the excess height
// threshold) a new exact-height shelf is opened instead, if headroom allows.
// A bucket only frees its width once every rectangle placed in it is gone,
// and empty shelves are only reclaimed from the top of the stack, which is
// the lowest shelf on the page.
//
// # Handles
//
// [ItemLib] is a named slot map that returns [Handle] values: a 16-bit slot
// index plus a 16-bit generation. Removing or replacing an item bumps the
// slot generation, so handles to the old item stop resolving even after the
// slot is reused. [Handle.Value] packs a handle into a uint32 for APIs that
// carry opaque integer ids; zero is never a valid packed handle.
//
// # Texture loading
//
// [TextureLoader] combines both: it decodes images, packs them into atlas
// pages (one [ShelfAllocator] per page, pages drawn from texture arrays) and
// stores the resulting [Texture] in an [ItemLib]. Settings come from a TOML
// file, see [LoadConfig].
//
// Nothing in this package is safe for concurrent use. Allocators, libraries
// and loaders belong to the goroutine that owns the graphics context.
//
// [Ebitengine]: https://ebitengine.org
package shelfatlas
