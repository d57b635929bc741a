package shelfatlas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	layoutBackground = color.NRGBA{R: 24, G: 24, B: 32, A: 255}
	layoutShelfEven  = color.NRGBA{R: 48, G: 48, B: 60, A: 255}
	layoutShelfOdd   = color.NRGBA{R: 60, G: 60, B: 74, A: 255}
	layoutRect       = color.NRGBA{R: 64, G: 120, B: 230, A: 255}
	layoutBorder     = color.NRGBA{R: 230, G: 40, B: 40, A: 255}
)

// RenderLayout draws the allocator's page: shelves as alternating bands,
// rects as filled boxes inset by one pixel so neighbours stay distinct, and a
// red border around the page.
func RenderLayout(a *ShelfAllocator, rects []Rect) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, a.width, a.height))
	fillRect(img, img.Bounds(), layoutBackground)

	for i := range a.shelves {
		s := &a.shelves[i]
		c := layoutShelfEven
		if i%2 == 1 {
			c = layoutShelfOdd
		}
		fillRect(img, image.Rect(0, s.yOffs, s.width, s.yOffs+s.height), c)
	}
	for _, r := range rects {
		box := image.Rect(r.X, r.Y, r.Right(), r.Bottom())
		if r.Width > 2 && r.Height > 2 {
			box = box.Inset(1)
		}
		fillRect(img, box, layoutRect)
	}

	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		img.SetNRGBA(x, b.Min.Y, layoutBorder)
		img.SetNRGBA(x, b.Max.Y-1, layoutBorder)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.SetNRGBA(b.Min.X, y, layoutBorder)
		img.SetNRGBA(b.Max.X-1, y, layoutBorder)
	}
	return img
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// WriteLayoutPNG renders the layout and writes it to dir as
// <timestamp>_<label>.png, returning the file path.
func WriteLayoutPNG(dir, label string, a *ShelfAllocator, rects []Rect) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("shelfatlas: layout: mkdir %s: %w", dir, err)
	}
	name := time.Now().Format("20060102_150405") + "_" + fileLabel(label) + ".png"
	path = filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("shelfatlas: layout: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			path, err = "", fmt.Errorf("shelfatlas: layout: close %s: %w", name, cerr)
		}
	}()
	if err := png.Encode(f, RenderLayout(a, rects)); err != nil {
		return "", fmt.Errorf("shelfatlas: layout: encode %s: %w", name, err)
	}
	return path, nil
}

// fileLabel maps label onto [A-Za-z0-9.-], replacing everything else with
// '_'. Blank labels become "unlabeled".
func fileLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, label)
}
