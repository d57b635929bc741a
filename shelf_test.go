package shelfatlas

import (
	"errors"
	"testing"
)

func TestNewShelf_BucketSizeMustDivideWidth(t *testing.T) {
	tests := []struct {
		name              string
		width, bucketSize int
	}{
		{"not a multiple", 100, 30},
		{"zero bucket", 100, 0},
		{"negative bucket", 100, -10},
		{"zero width", 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShelf(tt.width, 10, tt.bucketSize, 0); !errors.Is(err, ErrBucketSize) {
				t.Errorf("err = %v, want ErrBucketSize", err)
			}
		})
	}
}

func TestNewShelf_Buckets(t *testing.T) {
	s, err := NewShelf(400, 32, 100, 64)
	if err != nil {
		t.Fatal(err)
	}
	if s.BucketCount() != 4 {
		t.Fatalf("BucketCount = %d, want 4", s.BucketCount())
	}
	for i := 0; i < 4; i++ {
		b := s.Bucket(i)
		if b.XOffs() != i*100 || b.Width() != 100 || b.RemainingWidth() != 100 {
			t.Errorf("bucket %d: x=%d w=%d remaining=%d", i, b.XOffs(), b.Width(), b.RemainingWidth())
		}
	}
	if !s.IsEmpty() {
		t.Error("new shelf is not empty")
	}
}

func TestShelf_InsertRejectsTallRect(t *testing.T) {
	s, _ := NewShelf(200, 32, 100, 0)
	p := NewStoragePtr(10, 33)
	if s.InsertRect(&p) {
		t.Fatal("rect taller than the shelf was placed")
	}
	if !s.IsEmpty() {
		t.Error("rejected insert left the shelf non-empty")
	}
}

func TestShelf_InsertFirstFitAcrossBuckets(t *testing.T) {
	s, _ := NewShelf(200, 32, 100, 48)
	a := NewStoragePtr(70, 32)
	b := NewStoragePtr(70, 20)
	c := NewStoragePtr(30, 10)
	for _, p := range []*StoragePtr{&a, &b, &c} {
		if !s.InsertRect(p) {
			t.Fatalf("insert %v failed", p.Rect)
		}
	}

	// b does not fit behind a, so it opens bucket 1; c then fits behind a.
	want := []struct {
		bucket, x int
	}{{0, 0}, {1, 100}, {0, 70}}
	for i, p := range []StoragePtr{a, b, c} {
		if p.BucketID != want[i].bucket || p.Rect.X != want[i].x {
			t.Errorf("rect %d: bucket %d x %d, want bucket %d x %d",
				i, p.BucketID, p.Rect.X, want[i].bucket, want[i].x)
		}
		if p.Rect.Y != 48 {
			t.Errorf("rect %d: Y = %d, want 48", i, p.Rect.Y)
		}
	}
	if s.StoredRects() != 3 {
		t.Errorf("StoredRects = %d, want 3", s.StoredRects())
	}
}

func TestShelf_RemoveReportsEmptyShelf(t *testing.T) {
	s, _ := NewShelf(200, 32, 100, 0)
	a := NewStoragePtr(100, 32)
	b := NewStoragePtr(50, 32)
	s.InsertRect(&a)
	s.InsertRect(&b)

	if s.RemoveRect(a) {
		t.Fatal("shelf reported empty while bucket 1 is occupied")
	}
	if s.IsEmpty() {
		t.Fatal("IsEmpty true with one rect stored")
	}
	if !s.RemoveRect(b) {
		t.Fatal("removing the last rect did not report an empty shelf")
	}
	if !s.IsEmpty() || s.StoredRects() != 0 {
		t.Error("shelf not empty after removing everything")
	}
}

func TestShelf_RemoveBadBucketIgnored(t *testing.T) {
	s, _ := NewShelf(200, 32, 100, 0)
	a := NewStoragePtr(10, 10)
	s.InsertRect(&a)

	bad := a
	bad.BucketID = 5
	if s.RemoveRect(bad) {
		t.Fatal("out of range bucket reported empty")
	}
	if s.StoredRects() != 1 {
		t.Errorf("StoredRects = %d, want 1", s.StoredRects())
	}
}
