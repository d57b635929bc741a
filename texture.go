package shelfatlas

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// TextureIdentifier names one page layer: the texture array that owns it and
// the layer index inside that array.
type TextureIdentifier struct {
	Array int
	Layer uint8
}

// TextureArray is a fixed-size set of page layers that are handed out in
// order and never returned. Layer images are created on first hand-out.
type TextureArray struct {
	width, height int
	layers        []*ebiten.Image
	maxLayers     int
}

// NewTextureArray returns an array of up to layerCount pages of w×h pixels.
func NewTextureArray(w, h, layerCount int) *TextureArray {
	return &TextureArray{
		width:     w,
		height:    h,
		layers:    make([]*ebiten.Image, 0, layerCount),
		maxLayers: layerCount,
	}
}

// FreeLayer allocates the next unused layer. ok is false once every layer
// has been handed out.
func (ta *TextureArray) FreeLayer() (layer uint8, img *ebiten.Image, ok bool) {
	if len(ta.layers) >= ta.maxLayers {
		return 0, nil, false
	}
	img = ebiten.NewImage(ta.width, ta.height)
	ta.layers = append(ta.layers, img)
	return uint8(len(ta.layers) - 1), img, true
}

// Layer returns layer i, or nil if it has not been handed out.
func (ta *TextureArray) Layer(i int) *ebiten.Image {
	if i < 0 || i >= len(ta.layers) {
		return nil
	}
	return ta.layers[i]
}

// Used returns the number of layers handed out.
func (ta *TextureArray) Used() int { return len(ta.layers) }

// Cap returns the layer capacity.
func (ta *TextureArray) Cap() int { return ta.maxLayers }

// TextureAtlas binds one page layer to the ShelfAllocator that packs it.
type TextureAtlas struct {
	ident TextureIdentifier
	page  uint16
	kind  string
	image *ebiten.Image
	alloc *ShelfAllocator
}

// NewTextureAtlas wraps page img. page is the index of img in the owning
// loader's page list and ends up in every TextureRegion cut from it.
func NewTextureAtlas(img *ebiten.Image, ident TextureIdentifier, page uint16, kind string, bucketSize int, threshold float64) (*TextureAtlas, error) {
	b := img.Bounds()
	alloc, err := NewShelfAllocator(b.Dx(), b.Dy(), bucketSize, threshold)
	if err != nil {
		return nil, err
	}
	return &TextureAtlas{
		ident: ident,
		page:  page,
		kind:  kind,
		image: img,
		alloc: alloc,
	}, nil
}

// Insert reserves space for ptr.Rect. See ShelfAllocator.InsertRect.
func (a *TextureAtlas) Insert(ptr *StoragePtr) bool {
	return a.alloc.InsertRect(ptr)
}

// Remove releases ptr's space and clears its pixels.
func (a *TextureAtlas) Remove(ptr StoragePtr) bool {
	if !a.alloc.Remove(ptr) {
		return false
	}
	a.subImage(ptr.Rect).Clear()
	return true
}

// upload copies src into the page at r. src must be r.Width×r.Height.
func (a *TextureAtlas) upload(r Rect, src image.Image) {
	img := ebiten.NewImageFromImage(src)
	defer img.Deallocate()

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(r.X), float64(r.Y))
	op.Blend = ebiten.BlendCopy
	a.image.DrawImage(img, &op)
}

func (a *TextureAtlas) subImage(r Rect) *ebiten.Image {
	return a.image.SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom())).(*ebiten.Image)
}

// Ident returns the page layer this atlas packs.
func (a *TextureAtlas) Ident() TextureIdentifier { return a.ident }

// Page returns the page image.
func (a *TextureAtlas) Page() *ebiten.Image { return a.image }

// PageIndex returns the page's index in the loader's page list.
func (a *TextureAtlas) PageIndex() uint16 { return a.page }

// Kind returns the texture kind the atlas was opened for.
func (a *TextureAtlas) Kind() string { return a.kind }

// Allocator exposes the atlas' shelf allocator for diagnostics.
func (a *TextureAtlas) Allocator() *ShelfAllocator { return a.alloc }

// UVRect is a region in normalized page coordinates.
type UVRect struct {
	XMin, YMin, XMax, YMax float64
}

func uvFor(r Rect, pageW, pageH int) UVRect {
	w, h := float64(pageW), float64(pageH)
	return UVRect{
		XMin: float64(r.X) / w,
		YMin: float64(r.Y) / h,
		XMax: float64(r.Right()) / w,
		YMax: float64(r.Bottom()) / h,
	}
}

// Texture is an image resident in an atlas page.
type Texture struct {
	Name    string
	Path    string
	Kind    string
	Ident   TextureIdentifier
	Storage StoragePtr
	Atlas   Handle
	Page    uint16
	UV      UVRect
}

// Region returns the texture's placement as a TextureRegion.
func (t *Texture) Region() TextureRegion {
	r := t.Storage.Rect
	return TextureRegion{
		Page:      t.Page,
		X:         uint16(r.X),
		Y:         uint16(r.Y),
		Width:     uint16(r.Width),
		Height:    uint16(r.Height),
		OriginalW: uint16(r.Width),
		OriginalH: uint16(r.Height),
	}
}
