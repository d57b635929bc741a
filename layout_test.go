package shelfatlas

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"page-0", "page-0"},
		{"shelf.3", "shelf.3"},
		{"after remove", "after_remove"},
		{"tiles/ui", "tiles_ui"},
		{"a:b*c?", "a_b_c_"},
		{"  ", "unlabeled"},
		{"", "unlabeled"},
		{"Atlas42", "Atlas42"},
	}
	for _, tt := range tests {
		if got := fileLabel(tt.in); got != tt.want {
			t.Errorf("fileLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderLayout_Pixels(t *testing.T) {
	a := newTestAllocator(t, 64, 32, 32, 0.7)
	p := mustInsert(t, a, 10, 10)
	q := mustInsert(t, a, 10, 10)

	img := RenderLayout(a, []Rect{p.Rect, q.Rect})
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("image is %dx%d, want 64x32", b.Dx(), b.Dy())
	}

	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"border corner", 0, 0, layoutBorder},
		{"border right", 63, 12, layoutBorder},
		{"inside first rect", 5, 5, layoutRect},
		{"inside second rect", 15, 5, layoutRect},
		{"gap between rects", 10, 5, layoutShelfEven},
		{"shelf beyond rects", 40, 5, layoutShelfEven},
		{"below shelves", 30, 20, layoutBackground},
	}
	for _, tt := range tests {
		if got := img.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("%s (%d,%d) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestWriteLayoutPNG(t *testing.T) {
	a := newTestAllocator(t, 64, 32, 32, 0.7)
	p := mustInsert(t, a, 16, 8)

	dir := filepath.Join(t.TempDir(), "layouts")
	path, err := WriteLayoutPNG(dir, "after insert", a, []Rect{p.Rect})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "_after_insert.png") || filepath.Dir(path) != dir {
		t.Errorf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("decoded image is %dx%d", b.Dx(), b.Dy())
	}
}
