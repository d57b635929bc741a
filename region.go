package shelfatlas

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// TextureRegion describes a sub-rectangle of an atlas page. The layout
// matches TexturePacker frames so packed regions and imported sheets can be
// drawn by the same code.
type TextureRegion struct {
	Page      uint16 // index into the page list the region was cut from
	X, Y      uint16 // top-left corner within the page
	Width     uint16 // stored width (may differ from OriginalW if trimmed)
	Height    uint16 // stored height (may differ from OriginalH if trimmed)
	OriginalW uint16 // untrimmed width
	OriginalH uint16 // untrimmed height
	OffsetX   int16  // trim offset
	OffsetY   int16  // trim offset
	Rotated   bool   // stored 90 degrees clockwise
}

// MagentaPlaceholderPage is the page index of the placeholder region returned
// for missing names and stale handles. It never collides with a real page.
const MagentaPlaceholderPage = 0xFFFF

// magentaImage is created lazily; single-threaded, no sync.Once.
var magentaImage *ebiten.Image

func ensureMagentaImage() *ebiten.Image {
	if magentaImage == nil {
		magentaImage = ebiten.NewImage(1, 1)
		magentaImage.Fill(color.RGBA{R: 255, G: 0, B: 255, A: 255})
	}
	return magentaImage
}

// MagentaRegion returns the 1×1 placeholder region.
func MagentaRegion() TextureRegion {
	return TextureRegion{
		Page:      MagentaPlaceholderPage,
		Width:     1,
		Height:    1,
		OriginalW: 1,
		OriginalH: 1,
	}
}

// PageImage resolves region against pages, returning the magenta placeholder
// image for placeholder regions and nil for unknown pages.
func PageImage(region TextureRegion, pages []*ebiten.Image) *ebiten.Image {
	if region.Page == MagentaPlaceholderPage {
		return ensureMagentaImage()
	}
	if idx := int(region.Page); idx < len(pages) {
		return pages[idx]
	}
	return nil
}

// Atlas is a set of named regions over one or more pages, loaded from
// TexturePacker JSON.
type Atlas struct {
	// Pages contains the page images indexed by page number.
	Pages   []*ebiten.Image
	regions map[string]TextureRegion
}

// Region returns the region stored under name, or the magenta placeholder.
func (a *Atlas) Region(name string) TextureRegion {
	if r, ok := a.regions[name]; ok {
		return r
	}
	if globalDebug {
		debugf("atlas region %q not found, using magenta placeholder", name)
	}
	return MagentaRegion()
}

// Has reports whether name is a known region.
func (a *Atlas) Has(name string) bool {
	_, ok := a.regions[name]
	return ok
}

// Len returns the number of regions.
func (a *Atlas) Len() int { return len(a.regions) }

// --- TexturePacker JSON ---

// sheetBox is a TexturePacker rectangle. Sizes use only W and H.
type sheetBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// sheetFrame is one named entry of a sheet.
type sheetFrame struct {
	Frame            sheetBox `json:"frame"`
	Rotated          bool     `json:"rotated"`
	Trimmed          bool     `json:"trimmed"`
	SpriteSourceSize sheetBox `json:"spriteSourceSize"`
	SourceSize       sheetBox `json:"sourceSize"`
}

type sheetFrames map[string]sheetFrame

// sheetPage is an entry of the array layout's "textures" list.
type sheetPage struct {
	Image  string      `json:"image"`
	Frames sheetFrames `json:"frames"`
}

type sheetMeta struct {
	App   string   `json:"app"`
	Image string   `json:"image,omitempty"`
	Size  sheetBox `json:"size"`
}

// sheetFile decodes both layouts: hash has "frames" at the top level and a
// single page, array has one "textures" entry per page.
type sheetFile struct {
	Frames   sheetFrames `json:"frames"`
	Textures []sheetPage `json:"textures,omitempty"`
	Meta     *sheetMeta  `json:"meta,omitempty"`
}

var errNoFrames = errors.New(`shelfatlas: atlas JSON has neither "frames" nor "textures" key`)

// LoadAtlas parses TexturePacker JSON in hash or array format and binds the
// regions to pages.
func LoadAtlas(jsonData []byte, pages []*ebiten.Image) (*Atlas, error) {
	var sheet sheetFile
	if err := json.Unmarshal(jsonData, &sheet); err != nil {
		return nil, fmt.Errorf("shelfatlas: failed to parse atlas JSON: %w", err)
	}

	atlas := &Atlas{Pages: pages, regions: make(map[string]TextureRegion)}
	switch {
	case sheet.Textures != nil:
		for i, page := range sheet.Textures {
			page.Frames.addTo(atlas, uint16(i))
		}
	case sheet.Frames != nil:
		sheet.Frames.addTo(atlas, 0)
	default:
		return nil, errNoFrames
	}
	return atlas, nil
}

func (fs sheetFrames) addTo(atlas *Atlas, page uint16) {
	for name, f := range fs {
		atlas.regions[name] = TextureRegion{
			Page:      page,
			X:         uint16(f.Frame.X),
			Y:         uint16(f.Frame.Y),
			Width:     uint16(f.Frame.W),
			Height:    uint16(f.Frame.H),
			OriginalW: uint16(f.SourceSize.W),
			OriginalH: uint16(f.SourceSize.H),
			OffsetX:   int16(f.SpriteSourceSize.X),
			OffsetY:   int16(f.SpriteSourceSize.Y),
			Rotated:   f.Rotated,
		}
	}
}

// untrimmedFrame describes a packed rect that was stored at its full size.
func untrimmedFrame(r Rect) sheetFrame {
	size := sheetBox{W: r.Width, H: r.Height}
	return sheetFrame{
		Frame:            sheetBox{X: r.X, Y: r.Y, W: r.Width, H: r.Height},
		SpriteSourceSize: size,
		SourceSize:       size,
	}
}
