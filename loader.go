package shelfatlas

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureLoader places decoded images into atlas pages. Textures are grouped
// by kind: each kind packs into its own atlases, opened on demand from the
// next free layer of a texture array.
//
// A TextureLoader must be confined to the goroutine that owns the graphics
// context. Other goroutines hand work to it through a queue.
type TextureLoader struct {
	cfg      Config
	arrays   []*TextureArray
	pages    []*ebiten.Image
	atlases  ItemLib[*TextureAtlas]
	registry map[string][]Handle
	textures ItemLib[Texture]
}

// NewTextureLoader validates cfg and returns an empty loader.
func NewTextureLoader(cfg Config) (*TextureLoader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TextureLoader{
		cfg:      cfg,
		registry: make(map[string][]Handle),
	}, nil
}

// LoadTexture decodes the image file at path and places it under name.
func (l *TextureLoader) LoadTexture(name, kind, path string) (Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return InvalidHandle, fmt.Errorf("shelfatlas: open texture %q: %w", name, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return InvalidHandle, fmt.Errorf("shelfatlas: decode texture %q from %s: %w", name, path, err)
	}
	if globalDebug {
		b := img.Bounds()
		debugf("read %s image %s: %dx%d", format, path, b.Dx(), b.Dy())
	}
	h, err := l.place(name, kind, path, img)
	if err != nil {
		return InvalidHandle, err
	}
	return h, nil
}

// LoadImage places an already decoded image under name. Loading a name that
// is already resident replaces it once the new image has been placed: the old
// region is released and handles to the old texture stop resolving. When the
// new image cannot be placed the old texture is left as it was.
func (l *TextureLoader) LoadImage(name, kind string, img image.Image) (Handle, error) {
	return l.place(name, kind, "", img)
}

func (l *TextureLoader) place(name, kind, path string, img image.Image) (Handle, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return InvalidHandle, fmt.Errorf("%w: %q is %dx%d", ErrInvalidSize, name, w, h)
	}
	if w > l.cfg.BucketSize || h > l.cfg.TexHeight {
		return InvalidHandle, fmt.Errorf("%w: %q is %dx%d, limit %dx%d",
			ErrTextureTooLarge, name, w, h, l.cfg.BucketSize, l.cfg.TexHeight)
	}

	ptr := NewStoragePtr(w, h)
	ah, atlas, err := l.reserve(kind, &ptr)
	if err != nil {
		return InvalidHandle, fmt.Errorf("shelfatlas: store texture %q: %w", name, err)
	}

	var prev *Texture
	if old := l.textures.Get(l.textures.HandleOf(name)); old != nil {
		cp := *old
		prev = &cp
	}
	hd, err := l.makeTexture(name, path, kind, ptr, ah, atlas, img)
	if err != nil {
		return InvalidHandle, err
	}
	if prev != nil {
		l.release(prev)
		if globalDebug {
			debugf("texture %q replaced, released %v", name, prev.Storage.Rect)
		}
	}
	return hd, nil
}

// reserve finds room for ptr in one of kind's atlases, opening a new atlas
// when none of them has space.
func (l *TextureLoader) reserve(kind string, ptr *StoragePtr) (Handle, *TextureAtlas, error) {
	for _, ah := range l.registry[kind] {
		if atlas := l.atlases.Get(ah); atlas != nil && (*atlas).Insert(ptr) {
			return ah, *atlas, nil
		}
	}

	ah, err := l.createAtlas(kind)
	if err != nil {
		return InvalidHandle, nil, err
	}
	atlas := *l.atlases.Get(ah)
	if !atlas.Insert(ptr) {
		// CanFit was checked by the caller, so an empty page always takes it.
		return InvalidHandle, nil, fmt.Errorf("%w: %dx%d on a fresh page",
			ErrTextureTooLarge, ptr.Rect.Width, ptr.Rect.Height)
	}
	return ah, atlas, nil
}

// makeTexture records a placed region in the texture library and uploads its
// pixels. The region is given back to the atlas if the library is full.
func (l *TextureLoader) makeTexture(name, path, kind string, ptr StoragePtr, ah Handle, atlas *TextureAtlas, img image.Image) (Handle, error) {
	tex := Texture{
		Name:    name,
		Path:    path,
		Kind:    kind,
		Ident:   atlas.ident,
		Storage: ptr,
		Atlas:   ah,
		Page:    atlas.page,
		UV:      uvFor(ptr.Rect, l.cfg.TexWidth, l.cfg.TexHeight),
	}
	h := l.textures.AddItem(name, tex)
	if !h.IsValid() {
		atlas.Remove(ptr)
		return InvalidHandle, fmt.Errorf("%w: cannot add texture %q", ErrLibraryFull, name)
	}
	atlas.upload(ptr.Rect, img)
	if globalDebug {
		debugf("texture %q (%s) placed at %v on array %d layer %d, %v",
			name, kind, ptr.Rect, atlas.ident.Array, atlas.ident.Layer, h)
	}
	return h, nil
}

// createAtlas opens a new atlas for kind on the first free layer, creating a
// texture array when all existing ones are exhausted.
func (l *TextureLoader) createAtlas(kind string) (Handle, error) {
	if len(l.pages) >= MagentaPlaceholderPage {
		return InvalidHandle, fmt.Errorf("%w: all %d page indices in use",
			ErrNoFreeLayer, MagentaPlaceholderPage)
	}
	for i, arr := range l.arrays {
		layer, img, ok := arr.FreeLayer()
		if !ok {
			continue
		}
		return l.registerAtlas(kind, TextureIdentifier{Array: i, Layer: layer}, img)
	}
	if l.cfg.MaxTextureArrays > 0 && len(l.arrays) >= l.cfg.MaxTextureArrays {
		return InvalidHandle, fmt.Errorf("%w: %d arrays of %d layers in use",
			ErrNoFreeLayer, len(l.arrays), l.cfg.TexLayerCount)
	}
	if globalDebug {
		debugf("no free texture layer, creating texture array %d", len(l.arrays))
	}
	l.arrays = append(l.arrays, NewTextureArray(l.cfg.TexWidth, l.cfg.TexHeight, l.cfg.TexLayerCount))
	return l.createAtlas(kind)
}

// registerAtlas wraps a freshly handed out layer in an atlas. Page indices
// stop short of MagentaPlaceholderPage; createAtlas enforces that.
func (l *TextureLoader) registerAtlas(kind string, ident TextureIdentifier, img *ebiten.Image) (Handle, error) {
	page := uint16(len(l.pages))
	atlas, err := NewTextureAtlas(img, ident, page, kind, l.cfg.BucketSize, l.cfg.ExcessHeightThreshold)
	if err != nil {
		return InvalidHandle, err
	}
	h, key := l.atlases.AddWithRandomKey(atlas)
	if !h.IsValid() {
		return InvalidHandle, fmt.Errorf("%w: cannot add atlas for kind %q", ErrLibraryFull, kind)
	}
	l.pages = append(l.pages, img)
	l.registry[kind] = append(l.registry[kind], h)
	if globalDebug {
		debugf("created atlas %s for kind %q on array %d layer %d", key, kind, ident.Array, ident.Layer)
	}
	return h, nil
}

// UnloadTexture releases the texture's region and removes it from the
// library. It returns false for stale or invalid handles.
func (l *TextureLoader) UnloadTexture(h Handle) bool {
	tex := l.textures.Get(h)
	if tex == nil {
		return false
	}
	l.release(tex)
	l.textures.Remove(h)
	if globalDebug {
		debugf("unloaded texture %q from %v", tex.Name, tex.Storage.Rect)
	}
	return true
}

func (l *TextureLoader) release(tex *Texture) {
	if atlas := l.atlases.Get(tex.Atlas); atlas != nil {
		(*atlas).Remove(tex.Storage)
	}
}

// UnloadPacked is UnloadTexture for a handle packed with Handle.Value.
func (l *TextureLoader) UnloadPacked(v uint32) bool {
	return l.UnloadTexture(HandleFromValue(v))
}

// Texture returns the texture h refers to, or nil if h is stale.
func (l *TextureLoader) Texture(h Handle) *Texture {
	return l.textures.Get(h)
}

// TexturePacked is Texture for a handle packed with Handle.Value.
func (l *TextureLoader) TexturePacked(v uint32) *Texture {
	return l.textures.Get(HandleFromValue(v))
}

// TextureByName returns the handle of a resident texture, or InvalidHandle.
func (l *TextureLoader) TextureByName(name string) Handle {
	return l.textures.HandleOf(name)
}

// Region returns the texture's region, or the magenta placeholder when h is
// stale.
func (l *TextureLoader) Region(h Handle) TextureRegion {
	if tex := l.textures.Get(h); tex != nil {
		return tex.Region()
	}
	return MagentaRegion()
}

// SubImage returns the page sub-image holding the texture, or the magenta
// placeholder when h is stale.
func (l *TextureLoader) SubImage(h Handle) *ebiten.Image {
	tex := l.textures.Get(h)
	if tex == nil {
		return ensureMagentaImage()
	}
	r := tex.Storage.Rect
	return l.pages[tex.Page].SubImage(image.Rect(r.X, r.Y, r.Right(), r.Bottom())).(*ebiten.Image)
}

// Pages returns every page image in creation order. TextureRegion.Page
// indexes into this slice. The returned slice must not be mutated.
func (l *TextureLoader) Pages() []*ebiten.Image { return l.pages }

// Atlases returns the atlases opened for kind, oldest first.
func (l *TextureLoader) Atlases(kind string) []*TextureAtlas {
	var out []*TextureAtlas
	for _, h := range l.registry[kind] {
		if a := l.atlases.Get(h); a != nil {
			out = append(out, *a)
		}
	}
	return out
}

// Textures exposes the texture library.
func (l *TextureLoader) Textures() *ItemLib[Texture] { return &l.textures }

// TextureArrays returns the number of texture arrays created so far.
func (l *TextureLoader) TextureArrays() int { return len(l.arrays) }

// Config returns the loader's configuration.
func (l *TextureLoader) Config() Config { return l.cfg }

// LogStats prints per-atlas allocator stats to stderr in debug mode.
func (l *TextureLoader) LogStats() {
	if !globalDebug {
		return
	}
	l.atlases.Each(func(_ Handle, a **TextureAtlas) bool {
		atlas := *a
		atlas.alloc.debugLog(fmt.Sprintf("atlas %s page %d", atlas.kind, atlas.page))
		return true
	})
}

// ExportJSON describes the resident textures of kind as TexturePacker JSON.
// A kind packed into a single page uses the hash format; several pages use
// the array format with one entry per atlas, in atlas order. Page indices in
// the output are relative to the kind's atlas list, not to Pages.
func (l *TextureLoader) ExportJSON(kind string) ([]byte, error) {
	handles := l.registry[kind]
	if len(handles) == 0 {
		return nil, fmt.Errorf("shelfatlas: no atlas for kind %q", kind)
	}
	local := make(map[uint16]int, len(handles))
	pages := make([]sheetPage, 0, len(handles))
	for i, ah := range handles {
		local[(*l.atlases.Get(ah)).page] = i
		pages = append(pages, sheetPage{
			Image:  fmt.Sprintf("%s-%d.png", kind, i),
			Frames: make(sheetFrames),
		})
	}
	l.textures.Each(func(_ Handle, t *Texture) bool {
		if t.Kind == kind {
			pages[local[t.Page]].Frames[t.Name] = untrimmedFrame(t.Storage.Rect)
		}
		return true
	})

	sheet := sheetFile{Meta: &sheetMeta{App: "shelfatlas", Size: sheetBox{W: l.cfg.TexWidth, H: l.cfg.TexHeight}}}
	if len(pages) == 1 {
		sheet.Frames = pages[0].Frames
		sheet.Meta.Image = pages[0].Image
	} else {
		sheet.Textures = pages
	}
	data, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("shelfatlas: encode atlas JSON: %w", err)
	}
	return data, nil
}

// KindPages returns the page images of kind's atlases in atlas order, which
// is the order ExportJSON numbers them in.
func (l *TextureLoader) KindPages(kind string) []*ebiten.Image {
	atlases := l.Atlases(kind)
	pages := make([]*ebiten.Image, len(atlases))
	for i, a := range atlases {
		pages[i] = a.image
	}
	return pages
}
