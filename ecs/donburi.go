package ecs

import (
	"github.com/phanxgames/shelfatlas"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// TextureSource resolves and unloads texture handles. *shelfatlas.TextureLoader
// satisfies it.
type TextureSource interface {
	Texture(h shelfatlas.Handle) *shelfatlas.Texture
	UnloadTexture(h shelfatlas.Handle) bool
}

// TextureComponent holds the texture handle drawn for an entity.
var TextureComponent = donburi.NewComponentType[shelfatlas.Handle]()

// TextureReleased is published when ReleaseEntity unloads a texture.
type TextureReleased struct {
	Entity donburi.Entity
	Handle shelfatlas.Handle
	Name   string
}

// TextureReleasedEvent carries TextureReleased events. Events are queued;
// call ProcessEvents from a system to deliver them.
var TextureReleasedEvent = events.NewEventType[TextureReleased]()

var textureQuery = donburi.NewQuery(filter.Contains(TextureComponent))

// AttachTexture sets the entity's texture handle, adding the component if
// needed. It returns false for dead entities and invalid handles.
func AttachTexture(world donburi.World, entity donburi.Entity, h shelfatlas.Handle) bool {
	if !h.IsValid() || !world.Valid(entity) {
		return false
	}
	entry := world.Entry(entity)
	if !entry.HasComponent(TextureComponent) {
		entry.AddComponent(TextureComponent)
	}
	TextureComponent.SetValue(entry, h)
	return true
}

// ResolveTexture returns the entity's texture, or nil when the entity has no
// texture component or its handle has gone stale.
func ResolveTexture(entry *donburi.Entry, src TextureSource) *shelfatlas.Texture {
	if entry == nil || !entry.Valid() || !entry.HasComponent(TextureComponent) {
		return nil
	}
	return src.Texture(TextureComponent.GetValue(entry))
}

// ReleaseEntity unloads the entity's texture, if it still resolves, and then
// removes the entity from the world. It returns false for dead entities.
func ReleaseEntity(world donburi.World, entity donburi.Entity, src TextureSource) bool {
	if !world.Valid(entity) {
		return false
	}
	entry := world.Entry(entity)
	if entry.HasComponent(TextureComponent) {
		h := TextureComponent.GetValue(entry)
		if tex := src.Texture(h); tex != nil {
			name := tex.Name
			if src.UnloadTexture(h) {
				TextureReleasedEvent.Publish(world, TextureReleased{Entity: entity, Handle: h, Name: name})
			}
		}
	}
	world.Remove(entity)
	return true
}

// PruneStale removes the texture component from every entity whose handle no
// longer resolves and returns how many were removed. Entities are kept.
func PruneStale(world donburi.World, src TextureSource) int {
	var stale []donburi.Entity
	textureQuery.Each(world, func(entry *donburi.Entry) {
		if src.Texture(TextureComponent.GetValue(entry)) == nil {
			stale = append(stale, entry.Entity())
		}
	})
	for _, e := range stale {
		world.Entry(e).RemoveComponent(TextureComponent)
	}
	return len(stale)
}
