// Package hakoniwa implements an archetype-based entity-component world:
// an in-memory data engine for large populations of entities carrying
// typed components, tags, per-entity arrays, stable references, and an
// optional parent/child relation.
//
// Features:
// - Archetype (chunk) storage with up to 256 types per kind.
// - Bitmask definitions for fast chunk lookup.
// - Per-chunk version counters for exact iterator-invalidation detection.
// - Per-entity variable-length arrays and stable reference handles.
// - Deferred operation buffers replayable against any world.
// - Bit-exact binary serialization of schema and world.
//
// Basic Usage:
//
//	schema := hakoniwa.NewSchema()
//	apple := hakoniwa.RegisterComponent[Apple](schema)
//	isThing := hakoniwa.RegisterTag[IsThing](schema)
//
//	w := hakoniwa.NewWorld(schema)
//	e, _ := hakoniwa.CreateEntityWith(w, Apple{Bites: 4})
//	_ = hakoniwa.AddTag[IsThing](w, e)
//
//	q := hakoniwa.NewQuery[Apple](w, hakoniwa.Filter{RequireTags: isThing.Mask()})
//	for q.Next() {
//		a := q.Get()
//		a.Bites++
//	}
//	if err := q.Err(); err != nil {
//		// chunk was structurally mutated mid-iteration
//	}
//
// A World is single-threaded: no operation on a World may run concurrently
// with any other operation on the same World.
package hakoniwa
