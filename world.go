package hakoniwa

import "fmt"

const defaultInitialCapacity = 1024

// WorldOptions provides configuration options for creating a new World.
type WorldOptions struct {
	InitialCapacity int // initial capacity for entities and chunk columns
}

// World is the top-level store: it owns the schema, the chunk table, the
// entity directory, the reference table, and the notification listeners.
//
// A World is single-threaded; operations must not run concurrently.
type World struct {
	schema          *Schema
	dir             directory
	chunks          map[Definition]*Chunk
	chunkList       []*Chunk
	byComponent     [MaxTypes][]*Chunk
	references      []Entity
	childrenCache   map[Entity][]Entity
	lifecycle       []lifecycleListener
	dataChanges     []dataChangeListener
	nextListenerID  int
	initialCapacity int
	disposed        bool
}

// NewWorld creates an empty world owning the passed schema.
func NewWorld(schema *Schema) *World {
	return NewWorldWithOptions(schema, WorldOptions{})
}

// NewWorldWithOptions creates an empty world with the specified options.
func NewWorldWithOptions(schema *Schema, opts WorldOptions) *World {
	capacity := defaultInitialCapacity
	if opts.InitialCapacity > 0 {
		capacity = opts.InitialCapacity
	}
	w := &World{
		schema:          schema,
		dir:             newDirectory(capacity),
		chunks:          make(map[Definition]*Chunk, 32),
		chunkList:       make([]*Chunk, 0, 64),
		childrenCache:   make(map[Entity][]Entity),
		initialCapacity: capacity,
	}
	w.getOrCreateChunk(Definition{})
	return w
}

// Schema returns the world's schema.
func (w *World) Schema() *Schema { return w.schema }

// Dispose releases all chunks, per-entity arrays, and the reference table.
// Disposing twice is a programmer error.
func (w *World) Dispose() {
	if w.disposed {
		panic("world disposed twice")
	}
	w.disposed = true
	w.chunks = nil
	w.chunkList = nil
	w.byComponent = [MaxTypes][]*Chunk{}
	w.references = nil
	w.childrenCache = nil
	w.dir = directory{}
	w.lifecycle = nil
	w.dataChanges = nil
}

// getOrCreateChunk returns the chunk for def, creating it lazily. Chunks
// are never deleted during the world's life.
func (w *World) getOrCreateChunk(def Definition) *Chunk {
	if c, ok := w.chunks[def]; ok {
		return c
	}
	c := newChunk(def, w.schema, w.initialCapacity)
	w.chunks[def] = c
	w.chunkList = append(w.chunkList, c)
	for _, id := range c.compIDs {
		w.byComponent[id] = append(w.byComponent[id], c)
	}
	return c
}

// validateDefinition checks that every bit of def names a registered type.
func (w *World) validateDefinition(def Definition) error {
	for _, idx := range def.Components.Bits(nil) {
		if int(idx) >= w.schema.ComponentCount() {
			return TypeNotRegisteredError{Name: fmt.Sprintf("component index %d", idx)}
		}
	}
	for _, idx := range def.Arrays.Bits(nil) {
		if int(idx) >= w.schema.ArrayCount() {
			return TypeNotRegisteredError{Name: fmt.Sprintf("array index %d", idx)}
		}
	}
	for _, idx := range def.Tags.Bits(nil) {
		if int(idx) >= w.schema.TagCount() {
			return TypeNotRegisteredError{Name: fmt.Sprintf("tag index %d", idx)}
		}
	}
	return nil
}

// placeNew allocates an id and inserts it into the chunk for def.
func (w *World) placeNew(def Definition) Entity {
	c := w.getOrCreateChunk(def)
	e := w.dir.allocate()
	sl := &w.dir.slots[e]
	sl.chunk = c
	sl.row = c.addEntity(e)
	if def.Tags.Has(DisabledTagIndex) {
		sl.state = stateDisabled
	}
	return e
}

// CreateEntity creates a new entity in the empty chunk.
func (w *World) CreateEntity() Entity {
	e := w.placeNew(Definition{})
	w.notifyLifecycle(e, true)
	return e
}

// CreateEntityIn creates a new entity directly in the chunk for def, with
// all component columns zero-initialized.
func (w *World) CreateEntityIn(def Definition) (Entity, error) {
	if err := w.validateDefinition(def); err != nil {
		return 0, err
	}
	e := w.placeNew(def)
	w.notifyLifecycle(e, true)
	return e, nil
}

// CreateEntities creates n entities in one chunk.
func (w *World) CreateEntities(n int, def Definition) ([]Entity, error) {
	if err := w.validateDefinition(def); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	entities := make([]Entity, n)
	for i := range entities {
		entities[i] = w.placeNew(def)
	}
	for _, e := range entities {
		w.notifyLifecycle(e, true)
	}
	return entities, nil
}

// DestroyEntity removes the entity from its chunk, frees its arrays,
// detaches it from its parent, recursively destroys all descendants,
// clears its reference range, and returns the id to the free list.
// References held by other entities to the destroyed id resolve to the
// sentinel afterwards.
func (w *World) DestroyEntity(e Entity) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}

	for sl.childCount > 0 {
		children := w.Children(e)
		if len(children) == 0 {
			break
		}
		for _, c := range children {
			if err := w.DestroyEntity(c); err != nil {
				return err
			}
		}
	}

	if sl.parent != 0 {
		if psl := w.dir.get(sl.parent); psl != nil {
			psl.childCount--
			psl.flags |= flagChildrenOutdated
			if psl.childCount == 0 {
				psl.flags &^= flagContainsChildren
			}
		}
	}

	w.dropReferenceRange(sl)
	for i, t := range w.references {
		if t == e {
			w.references[i] = 0
		}
	}

	moved := sl.chunk.removeAt(sl.row)
	if moved != 0 {
		w.dir.slots[moved].row = sl.row
	}

	delete(w.childrenCache, e)
	w.dir.release(e)
	w.notifyLifecycle(e, false)
	return nil
}

// migrate moves the entity between chunks after a definition change.
func (w *World) migrate(sl *slot, newDef Definition) {
	dst := w.getOrCreateChunk(newDef)
	newRow, swapped := sl.chunk.moveTo(sl.row, dst)
	if swapped != 0 {
		w.dir.slots[swapped].row = sl.row
	}
	sl.chunk = dst
	sl.row = newRow
}

// addComponentRaw migrates e to the chunk whose definition includes idx
// and fills the new cell from data (zeroes when data is nil).
func (w *World) addComponentRaw(e Entity, idx uint8, data []byte) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if sl.chunk.def.Components.Has(idx) {
		return ComponentPresentError{Entity: e, TypeIndex: idx}
	}
	w.migrate(sl, sl.chunk.def.WithComponent(idx))
	if data != nil {
		sl.chunk.setCell(idx, sl.row, data)
	}
	w.notifyData(e, DataComponent, idx, true)
	return nil
}

// removeComponentRaw migrates e to the chunk without idx.
func (w *World) removeComponentRaw(e Entity, idx uint8) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if !sl.chunk.def.Components.Has(idx) {
		return ComponentAbsentError{Entity: e, TypeIndex: idx}
	}
	w.migrate(sl, sl.chunk.def.WithoutComponent(idx))
	w.notifyData(e, DataComponent, idx, false)
	return nil
}

// componentCellOf returns the raw cell of one component of e.
func (w *World) componentCellOf(e Entity, idx uint8) ([]byte, error) {
	sl := w.dir.get(e)
	if sl == nil {
		return nil, EntityNotFoundError{Entity: e}
	}
	if !sl.chunk.def.Components.Has(idx) {
		return nil, ComponentAbsentError{Entity: e, TypeIndex: idx}
	}
	return sl.chunk.cell(idx, sl.row), nil
}

// setComponentRaw overwrites a present component in place. Not a
// structural mutation.
func (w *World) setComponentRaw(e Entity, idx uint8, data []byte) error {
	cell, err := w.componentCellOf(e, idx)
	if err != nil {
		return err
	}
	copy(cell, data)
	return nil
}

// hasComponentRaw reports whether e's definition includes component idx.
func (w *World) hasComponentRaw(e Entity, idx uint8) bool {
	sl := w.dir.get(e)
	return sl != nil && sl.chunk.def.Components.Has(idx)
}

// addTagRaw migrates e to the chunk whose definition includes tag idx.
func (w *World) addTagRaw(e Entity, idx uint8) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if sl.chunk.def.Tags.Has(idx) {
		return TagPresentError{Entity: e, TypeIndex: idx}
	}
	w.migrate(sl, sl.chunk.def.WithTag(idx))
	w.notifyData(e, DataTag, idx, true)
	return nil
}

// removeTagRaw migrates e to the chunk without tag idx.
func (w *World) removeTagRaw(e Entity, idx uint8) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if !sl.chunk.def.Tags.Has(idx) {
		return TagAbsentError{Entity: e, TypeIndex: idx}
	}
	w.migrate(sl, sl.chunk.def.WithoutTag(idx))
	w.notifyData(e, DataTag, idx, false)
	return nil
}

// hasTagRaw reports whether e's definition includes tag idx.
func (w *World) hasTagRaw(e Entity, idx uint8) bool {
	sl := w.dir.get(e)
	return sl != nil && sl.chunk.def.Tags.Has(idx)
}

// SetEnabled toggles the reserved Disabled tag on e. Disabling an entity
// switches every descendant's effective state to disabled-due-to-ancestor
// without touching the descendants' own tags; re-enabling restores each
// descendant's effective state from its local state.
func (w *World) SetEnabled(e Entity, enabled bool) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	locallyDisabled := sl.chunk.def.Tags.Has(DisabledTagIndex)
	if !enabled && !locallyDisabled {
		w.migrate(sl, sl.chunk.def.WithTag(DisabledTagIndex))
		w.notifyData(e, DataTag, DisabledTagIndex, true)
	} else if enabled && locallyDisabled {
		w.migrate(sl, sl.chunk.def.WithoutTag(DisabledTagIndex))
		w.notifyData(e, DataTag, DisabledTagIndex, false)
	}
	w.refreshStates(e, w.hasDisabledAncestor(e))
	return nil
}

// Enabled reports the effective (ancestor-propagated) state of e.
func (w *World) Enabled(e Entity) bool {
	sl := w.dir.get(e)
	return sl != nil && sl.state == stateEnabled
}

// LocallyEnabled reports only e's own state, ignoring ancestors.
func (w *World) LocallyEnabled(e Entity) bool {
	sl := w.dir.get(e)
	return sl != nil && !sl.chunk.def.Tags.Has(DisabledTagIndex)
}

// hasDisabledAncestor walks the parent chain looking for a locally
// disabled ancestor.
func (w *World) hasDisabledAncestor(e Entity) bool {
	sl := w.dir.get(e)
	if sl == nil {
		return false
	}
	for p := sl.parent; p != 0; {
		psl := w.dir.get(p)
		if psl == nil {
			return false
		}
		if psl.chunk.def.Tags.Has(DisabledTagIndex) {
			return true
		}
		p = psl.parent
	}
	return false
}

// refreshStates recomputes the effective state of e's subtree.
func (w *World) refreshStates(e Entity, ancestorDisabled bool) {
	sl := w.dir.get(e)
	if sl == nil {
		return
	}
	local := sl.chunk.def.Tags.Has(DisabledTagIndex)
	switch {
	case local:
		sl.state = stateDisabled
	case ancestorDisabled:
		sl.state = stateDisabledDueToAncestor
	default:
		sl.state = stateEnabled
	}
	if sl.childCount == 0 {
		return
	}
	for _, c := range w.Children(e) {
		w.refreshStates(c, ancestorDisabled || local)
	}
}

// SetParent links child under parent (0 detaches). It is an error if the
// link would create a cycle. The child's effective state follows the new
// ancestor chain.
func (w *World) SetParent(child, parent Entity) error {
	sl := w.dir.get(child)
	if sl == nil {
		return EntityNotFoundError{Entity: child}
	}
	if parent != 0 {
		if w.dir.get(parent) == nil {
			return EntityNotFoundError{Entity: parent}
		}
		for p := parent; p != 0; {
			if p == child {
				return ParentCycleError{Child: child, Parent: parent}
			}
			p = w.dir.get(p).parent
		}
	}
	if sl.parent == parent {
		return nil
	}
	if old := sl.parent; old != 0 {
		if osl := w.dir.get(old); osl != nil {
			osl.childCount--
			osl.flags |= flagChildrenOutdated
			if osl.childCount == 0 {
				osl.flags &^= flagContainsChildren
			}
		}
		delete(w.childrenCache, old)
	}
	sl.parent = parent
	if parent != 0 {
		psl := w.dir.get(parent)
		psl.childCount++
		psl.flags |= flagContainsChildren | flagChildrenOutdated
		delete(w.childrenCache, parent)
	}
	w.refreshStates(child, w.hasDisabledAncestor(child))
	return nil
}

// Parent returns e's parent, 0 when none.
func (w *World) Parent(e Entity) Entity {
	sl := w.dir.get(e)
	if sl == nil {
		return 0
	}
	return sl.parent
}

// Children returns parent's direct children. The set is materialized
// lazily from the directory and reused until the next relation change.
// The returned slice is owned by the world; callers must not retain it
// across mutations.
func (w *World) Children(parent Entity) []Entity {
	sl := w.dir.get(parent)
	if sl == nil || sl.childCount == 0 {
		return nil
	}
	if cached, ok := w.childrenCache[parent]; ok && sl.flags&flagChildrenOutdated == 0 {
		return cached
	}
	children := make([]Entity, 0, sl.childCount)
	for id := Entity(1); int(id) < len(w.dir.slots); id++ {
		s := &w.dir.slots[id]
		if s.state != stateFree && s.parent == parent {
			children = append(children, id)
		}
	}
	w.childrenCache[parent] = children
	sl.flags &^= flagChildrenOutdated
	return children
}

// CloneEntity creates a new entity in the same chunk as e with every
// component cell copied, each array deep-copied, and the reference range
// copied verbatim. Parent and children are not copied.
func (w *World) CloneEntity(e Entity) (Entity, error) {
	sl := w.dir.get(e)
	if sl == nil {
		return 0, EntityNotFoundError{Entity: e}
	}
	srcChunk := sl.chunk
	srcRow := sl.row
	srcArrays := sl.arrays
	srcFlags := sl.flags & flagContainsArrays
	refStart, refCount := sl.refStart, sl.refCount

	ne := w.dir.allocate() // may grow the directory; sl is stale after this
	nsl := &w.dir.slots[ne]
	nsl.chunk = srcChunk
	nsl.row = srcChunk.addEntity(ne)
	srcChunk.copyRow(nsl.row, srcRow)
	if srcChunk.def.Tags.Has(DisabledTagIndex) {
		nsl.state = stateDisabled
	}
	nsl.flags = srcFlags
	if len(srcArrays) > 0 {
		nsl.arrays = make(map[uint8][]byte, len(srcArrays))
		for idx, buf := range srcArrays {
			cp := make([]byte, len(buf))
			copy(cp, buf)
			nsl.arrays[idx] = cp
		}
	}
	if refCount > 0 {
		nsl.refStart = len(w.references)
		nsl.refCount = refCount
		w.references = append(w.references, w.references[refStart:refStart+refCount]...)
	}
	w.notifyLifecycle(ne, true)
	return ne, nil
}

// Append merges other into w: every live entity of other gets a fresh id
// past w's maxEntityValue, with parents and references remapped. It fails
// with TypeNotRegisteredError when other uses a type absent from w's
// schema. Returns the old-to-new id mapping.
func (w *World) Append(other *World) (map[Entity]Entity, error) {
	var used [kindCount]BitMask
	for _, c := range other.chunkList {
		if c.Len() > 0 {
			used[KindComponent] = used[KindComponent].Or(c.def.Components)
			used[KindArray] = used[KindArray].Or(c.def.Arrays)
			used[KindTag] = used[KindTag].Or(c.def.Tags)
		}
	}
	var compRemap, arrayRemap, tagRemap [MaxTypes]uint8
	remapKind := func(kind TypeKind, table *[MaxTypes]uint8) error {
		for i, l := range other.schema.kinds[kind].layouts {
			if !used[kind].Has(uint8(i)) {
				continue
			}
			idx, ok := w.schema.indexForHash(kind, l.Hash())
			if !ok {
				return TypeNotRegisteredError{Name: l.Name, Hash: l.Hash()}
			}
			table[i] = idx
		}
		return nil
	}
	if err := remapKind(KindComponent, &compRemap); err != nil {
		return nil, err
	}
	if err := remapKind(KindArray, &arrayRemap); err != nil {
		return nil, err
	}
	if err := remapKind(KindTag, &tagRemap); err != nil {
		return nil, err
	}

	remap := make(map[Entity]Entity, other.dir.live)
	for id := Entity(1); int(id) < len(other.dir.slots); id++ {
		if other.dir.slots[id].state != stateFree {
			remap[id] = w.dir.allocateFresh()
		}
	}

	remapMask := func(m BitMask, table *[MaxTypes]uint8) BitMask {
		var nm BitMask
		for _, bit := range m.Bits(nil) {
			nm.Set(table[bit])
		}
		return nm
	}

	for id := Entity(1); int(id) < len(other.dir.slots); id++ {
		osl := &other.dir.slots[id]
		if osl.state == stateFree {
			continue
		}
		ne := remap[id]
		def := Definition{
			Components: remapMask(osl.chunk.def.Components, &compRemap),
			Arrays:     remapMask(osl.chunk.def.Arrays, &arrayRemap),
			Tags:       remapMask(osl.chunk.def.Tags, &tagRemap),
		}
		c := w.getOrCreateChunk(def)
		nsl := &w.dir.slots[ne]
		nsl.chunk = c
		nsl.row = c.addEntity(ne)
		for _, oldIdx := range osl.chunk.compIDs {
			c.setCell(compRemap[oldIdx], nsl.row, osl.chunk.cell(oldIdx, osl.row))
		}
		nsl.state = osl.state
		nsl.flags = osl.flags | flagChildrenOutdated
		nsl.parent = remap[osl.parent]
		nsl.childCount = osl.childCount
		if len(osl.arrays) > 0 {
			nsl.arrays = make(map[uint8][]byte, len(osl.arrays))
			for idx, buf := range osl.arrays {
				cp := make([]byte, len(buf))
				copy(cp, buf)
				nsl.arrays[arrayRemap[idx]] = cp
			}
		}
		if osl.refCount > 0 {
			nsl.refStart = len(w.references)
			nsl.refCount = osl.refCount
			for _, t := range other.references[osl.refStart : osl.refStart+osl.refCount] {
				w.references = append(w.references, remap[t])
			}
		}
	}

	for id := Entity(1); int(id) < len(other.dir.slots); id++ {
		if other.dir.slots[id].state != stateFree {
			w.notifyLifecycle(remap[id], true)
		}
	}
	return remap, nil
}

// Clear destroys every entity. Schema and chunk structure are retained
// but empty; the id space restarts at 1.
func (w *World) Clear() {
	for id := Entity(1); int(id) < len(w.dir.slots); id++ {
		if w.dir.slots[id].state != stateFree {
			w.notifyLifecycle(id, false)
		}
	}
	w.dir = newDirectory(w.initialCapacity)
	for _, c := range w.chunkList {
		c.clearRows()
	}
	w.references = w.references[:0]
	clear(w.childrenCache)
}

// Alive reports whether e is a live entity.
func (w *World) Alive(e Entity) bool {
	return w.dir.get(e) != nil
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int { return w.dir.live }

// MaxEntityValue returns the highest id ever allocated.
func (w *World) MaxEntityValue() Entity { return w.dir.maxEntityValue() }

// PeekNextEntity predicts the id the allocation after offset more
// allocations would return, across intervening destroys.
func (w *World) PeekNextEntity(offset int) Entity {
	return w.dir.peekNext(offset)
}

// Chunks returns all chunks created so far, including empty ones.
func (w *World) Chunks() []*Chunk { return w.chunkList }

// ChunkFor returns the chunk for def if it was ever created.
func (w *World) ChunkFor(def Definition) (*Chunk, bool) {
	c, ok := w.chunks[def]
	return c, ok
}

// DefinitionOf returns the definition of e's current chunk.
func (w *World) DefinitionOf(e Entity) (Definition, error) {
	sl := w.dir.get(e)
	if sl == nil {
		return Definition{}, EntityNotFoundError{Entity: e}
	}
	return sl.chunk.def, nil
}
