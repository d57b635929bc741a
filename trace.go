package shelfatlas

import (
	"encoding/json"
	"fmt"
	"slices"
)

// traceStep is a single action in a trace script.
type traceStep struct {
	Action string `json:"action"`
	Label  string `json:"label,omitempty"`
	W      int    `json:"w,omitempty"`
	H      int    `json:"h,omitempty"`
	// Fail marks an insert that is expected to miss.
	Fail bool `json:"fail,omitempty"`
}

// traceScript is the top-level JSON structure for a trace. Zero page
// settings fall back to DefaultConfig.
type traceScript struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	BucketSize int         `json:"bucketSize"`
	Threshold  float64     `json:"threshold"`
	Steps      []traceStep `json:"steps"`
}

// Trace replays a scripted sequence of inserts and removes against a fresh
// allocator, checking placement and bookkeeping after every step. Actions:
//
//	{"action": "insert", "label": "a", "w": 32, "h": 16}
//	{"action": "insert", "label": "big", "w": 64, "h": 4096, "fail": true}
//	{"action": "remove", "label": "a"}
//	{"action": "dump", "label": "after-remove"}
//
// dump writes a layout PNG to LayoutDir.
type Trace struct {
	alloc  *ShelfAllocator
	steps  []traceStep
	cursor int
	live   map[string]StoragePtr
	order  []string
	misses int
	done   bool

	// LayoutDir receives the PNGs written by dump steps.
	LayoutDir string
}

// LoadTrace parses a JSON trace script.
func LoadTrace(jsonData []byte) (*Trace, error) {
	var script traceScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("shelfatlas: parse trace: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("shelfatlas: parse trace: no steps")
	}
	def := DefaultConfig()
	if script.Width == 0 {
		script.Width = def.TexWidth
	}
	if script.Height == 0 {
		script.Height = def.TexHeight
	}
	if script.BucketSize == 0 {
		script.BucketSize = def.BucketSize
	}
	if script.Threshold == 0 {
		script.Threshold = def.ExcessHeightThreshold
	}
	alloc, err := NewShelfAllocator(script.Width, script.Height, script.BucketSize, script.Threshold)
	if err != nil {
		return nil, fmt.Errorf("shelfatlas: parse trace: %w", err)
	}
	return &Trace{
		alloc:     alloc,
		steps:     script.Steps,
		live:      make(map[string]StoragePtr),
		LayoutDir: "layouts",
	}, nil
}

// Done reports whether all steps have been executed.
func (t *Trace) Done() bool { return t.done }

// Allocator returns the allocator the trace drives.
func (t *Trace) Allocator() *ShelfAllocator { return t.alloc }

// Misses returns the number of inserts that did not fit.
func (t *Trace) Misses() int { return t.misses }

// Placement returns the live placement recorded under label.
func (t *Trace) Placement(label string) (StoragePtr, bool) {
	p, ok := t.live[label]
	return p, ok
}

// Placements returns the live placements in insertion order.
func (t *Trace) Placements() []StoragePtr {
	out := make([]StoragePtr, len(t.order))
	for i, label := range t.order {
		out[i] = t.live[label]
	}
	return out
}

// Run executes the remaining steps, stopping at the first error.
func (t *Trace) Run() error {
	for !t.done {
		if err := t.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the next step.
func (t *Trace) Step() error {
	if t.done {
		return nil
	}
	if t.cursor >= len(t.steps) {
		t.done = true
		return nil
	}
	n := t.cursor
	st := t.steps[n]
	t.cursor++
	if t.cursor >= len(t.steps) {
		t.done = true
	}

	switch st.Action {
	case "insert":
		if _, dup := t.live[st.Label]; dup {
			return fmt.Errorf("trace step %d: label %q is already live", n, st.Label)
		}
		ptr := NewStoragePtr(st.W, st.H)
		ok := t.alloc.InsertRect(&ptr)
		if ok == st.Fail {
			return fmt.Errorf("trace step %d: insert %q %dx%d: fit=%t, want %t", n, st.Label, st.W, st.H, ok, !st.Fail)
		}
		if !ok {
			t.misses++
			return nil
		}
		t.live[st.Label] = ptr
		t.order = append(t.order, st.Label)
	case "remove":
		ptr, ok := t.live[st.Label]
		if !ok {
			return fmt.Errorf("trace step %d: remove unknown label %q", n, st.Label)
		}
		if !t.alloc.Remove(ptr) {
			return fmt.Errorf("trace step %d: remove %q was rejected", n, st.Label)
		}
		delete(t.live, st.Label)
		t.order = slices.DeleteFunc(t.order, func(l string) bool { return l == st.Label })
	case "dump":
		rects := make([]Rect, 0, len(t.order))
		for _, label := range t.order {
			rects = append(rects, t.live[label].Rect)
		}
		if _, err := WriteLayoutPNG(t.LayoutDir, st.Label, t.alloc, rects); err != nil {
			return fmt.Errorf("trace step %d: %w", n, err)
		}
		return nil
	default:
		return fmt.Errorf("trace step %d: unknown action %q", n, st.Action)
	}

	if err := t.alloc.checkInvariants(); err != nil {
		return fmt.Errorf("trace step %d: %w", n, err)
	}
	if err := VerifyLayout(t.alloc, t.Placements()); err != nil {
		return fmt.Errorf("trace step %d: %w", n, err)
	}
	return nil
}
