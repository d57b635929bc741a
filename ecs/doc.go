// Package ecs provides ECS adapters for shelfatlas textures.
//
// [TextureComponent] stores a texture [shelfatlas.Handle] on a [Donburi]
// entity. Handles are generational, so an entity whose texture was unloaded
// or replaced elsewhere simply stops resolving; [PruneStale] drops those
// components in one pass. [ReleaseEntity] unloads an entity's texture before
// removing the entity and publishes a [TextureReleased] event for every
// texture it frees.
//
// Usage:
//
//	e := world.Create()
//	ecs.AttachTexture(world, e, handle)
//	if tex := ecs.ResolveTexture(world.Entry(e), loader); tex != nil {
//		// draw loader.SubImage(handle)
//	}
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
