package ecs

import (
	"testing"

	"github.com/phanxgames/shelfatlas"

	"github.com/yohamta/donburi"
)

// fakeSource is a TextureSource backed by an ItemLib, without GPU pages.
type fakeSource struct {
	lib      *shelfatlas.ItemLib[shelfatlas.Texture]
	unloaded []shelfatlas.Handle
}

func newFakeSource() *fakeSource {
	return &fakeSource{lib: shelfatlas.NewItemLib[shelfatlas.Texture]()}
}

func (f *fakeSource) add(name string) shelfatlas.Handle {
	return f.lib.AddItem(name, shelfatlas.Texture{Name: name, Kind: "sprites"})
}

func (f *fakeSource) Texture(h shelfatlas.Handle) *shelfatlas.Texture { return f.lib.Get(h) }

func (f *fakeSource) UnloadTexture(h shelfatlas.Handle) bool {
	if !f.lib.Remove(h) {
		return false
	}
	f.unloaded = append(f.unloaded, h)
	return true
}

func TestAttachTexture(t *testing.T) {
	world := donburi.NewWorld()
	src := newFakeSource()
	h := src.add("hero")
	e := world.Create()

	if !AttachTexture(world, e, h) {
		t.Fatal("AttachTexture returned false")
	}
	entry := world.Entry(e)
	if !entry.HasComponent(TextureComponent) {
		t.Fatal("component not added")
	}
	if got := TextureComponent.GetValue(entry); got != h {
		t.Errorf("stored handle %v, want %v", got, h)
	}

	// Reattaching replaces the handle in place.
	h2 := src.add("villain")
	AttachTexture(world, e, h2)
	if got := TextureComponent.GetValue(entry); got != h2 {
		t.Errorf("stored handle %v after reattach, want %v", got, h2)
	}
}

func TestAttachTexture_Rejects(t *testing.T) {
	world := donburi.NewWorld()
	e := world.Create()
	if AttachTexture(world, e, shelfatlas.InvalidHandle) {
		t.Error("invalid handle attached")
	}
	if world.Entry(e).HasComponent(TextureComponent) {
		t.Error("component added for an invalid handle")
	}

	h := newFakeSource().add("x")
	world.Remove(e)
	if AttachTexture(world, e, h) {
		t.Error("handle attached to a removed entity")
	}
}

func TestResolveTexture(t *testing.T) {
	world := donburi.NewWorld()
	src := newFakeSource()
	h := src.add("hero")
	e := world.Create()
	AttachTexture(world, e, h)

	tex := ResolveTexture(world.Entry(e), src)
	if tex == nil || tex.Name != "hero" {
		t.Fatalf("ResolveTexture = %+v", tex)
	}

	src.UnloadTexture(h)
	if ResolveTexture(world.Entry(e), src) != nil {
		t.Error("stale handle resolved")
	}

	bare := world.Create()
	if ResolveTexture(world.Entry(bare), src) != nil {
		t.Error("entity without a texture resolved")
	}
}

func TestReleaseEntity(t *testing.T) {
	world := donburi.NewWorld()
	src := newFakeSource()
	h := src.add("hero")
	e := world.Create()
	AttachTexture(world, e, h)

	var released []TextureReleased
	TextureReleasedEvent.Subscribe(world, func(w donburi.World, ev TextureReleased) {
		released = append(released, ev)
	})

	if !ReleaseEntity(world, e, src) {
		t.Fatal("ReleaseEntity returned false")
	}
	if world.Valid(e) {
		t.Error("entity still valid")
	}
	if len(src.unloaded) != 1 || src.unloaded[0] != h {
		t.Errorf("unloaded = %v, want [%v]", src.unloaded, h)
	}

	// Events are queued until processed.
	if len(released) != 0 {
		t.Fatalf("event delivered before ProcessEvents")
	}
	TextureReleasedEvent.ProcessEvents(world)
	if len(released) != 1 {
		t.Fatalf("expected 1 event, got %d", len(released))
	}
	if ev := released[0]; ev.Entity != e || ev.Handle != h || ev.Name != "hero" {
		t.Errorf("event = %+v", ev)
	}

	if ReleaseEntity(world, e, src) {
		t.Error("second ReleaseEntity returned true")
	}
}

func TestReleaseEntity_StaleHandleNoEvent(t *testing.T) {
	world := donburi.NewWorld()
	src := newFakeSource()
	h := src.add("hero")
	e := world.Create()
	AttachTexture(world, e, h)
	src.UnloadTexture(h)
	src.unloaded = nil

	count := 0
	TextureReleasedEvent.Subscribe(world, func(donburi.World, TextureReleased) { count++ })

	if !ReleaseEntity(world, e, src) {
		t.Fatal("ReleaseEntity returned false")
	}
	TextureReleasedEvent.ProcessEvents(world)
	if count != 0 || len(src.unloaded) != 0 {
		t.Errorf("stale handle unloaded again: events %d unloads %d", count, len(src.unloaded))
	}
	if world.Valid(e) {
		t.Error("entity not removed")
	}
}

func TestPruneStale(t *testing.T) {
	world := donburi.NewWorld()
	src := newFakeSource()

	live := world.Create()
	AttachTexture(world, live, src.add("live"))

	gone := src.add("gone")
	stale := world.Create()
	AttachTexture(world, stale, gone)

	replaced := src.add("swap")
	swapped := world.Create()
	AttachTexture(world, swapped, replaced)

	src.UnloadTexture(gone)
	src.add("swap") // bumps the generation of the slot the old handle points at

	if n := PruneStale(world, src); n != 2 {
		t.Fatalf("PruneStale = %d, want 2", n)
	}
	if !world.Entry(live).HasComponent(TextureComponent) {
		t.Error("live texture pruned")
	}
	for _, e := range []donburi.Entity{stale, swapped} {
		if !world.Valid(e) {
			t.Error("pruned entity was removed")
		}
		if world.Entry(e).HasComponent(TextureComponent) {
			t.Error("stale texture component kept")
		}
	}
	if n := PruneStale(world, src); n != 0 {
		t.Errorf("second PruneStale = %d, want 0", n)
	}
}

func TestTextureLoader_SatisfiesTextureSource(t *testing.T) {
	var _ TextureSource = (*shelfatlas.TextureLoader)(nil)
}
