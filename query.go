package hakoniwa

import "unsafe"

// Filter selects chunks by definition. Components named by a typed query
// are added to Require automatically. Disabled entities are skipped unless
// IncludeDisabled is set; entities disabled through an ancestor are
// filtered per row, since their own definition carries no Disabled tag.
type Filter struct {
	Require         BitMask
	Exclude         BitMask
	RequireTags     BitMask
	ExcludeTags     BitMask
	IncludeDisabled bool
}

// matches reports whether a chunk definition satisfies the filter.
func (f Filter) matches(def Definition) bool {
	if !def.Components.ContainsAll(f.Require) || def.Components.Intersects(f.Exclude) {
		return false
	}
	if !def.Tags.ContainsAll(f.RequireTags) || def.Tags.Intersects(f.ExcludeTags) {
		return false
	}
	if !f.IncludeDisabled && def.Tags.Has(DisabledTagIndex) {
		return false
	}
	return true
}

func firstFilter(filter []Filter) Filter {
	if len(filter) > 0 {
		return filter[0]
	}
	return Filter{}
}

// EntityQuery yields entity ids matching a filter, chunk-major and
// row-ascending. Each visited chunk's version is snapshot at entry; a
// structural mutation of the in-flight chunk surfaces as ErrChunkModified
// on the next Next.
type EntityQuery struct {
	world        *World
	filter       Filter
	chunk        *Chunk
	chunkIdx     int
	row          int
	chunkVersion uint64
	cur          Entity
	err          error
}

// NewEntityQuery creates an untagged query over w.
func NewEntityQuery(w *World, filter ...Filter) *EntityQuery {
	return &EntityQuery{world: w, filter: firstFilter(filter), row: -1}
}

// Reset rewinds the query for reuse.
func (q *EntityQuery) Reset() {
	q.chunkIdx = 0
	q.row = -1
	q.chunk = nil
	q.err = nil
}

// Next advances to the next entity. Returns false when exhausted or on
// iterator failure; check Err afterwards.
func (q *EntityQuery) Next() bool {
	if q.err != nil {
		return false
	}
	for {
		if q.chunk != nil {
			if q.chunk.version != q.chunkVersion {
				q.err = ErrChunkModified
				return false
			}
			for q.row++; q.row < q.chunk.Len(); q.row++ {
				e := q.chunk.entities[q.row]
				if q.filter.IncludeDisabled || q.world.dir.slots[e].state == stateEnabled {
					q.cur = e
					return true
				}
			}
		}
		q.chunk = nil
		for q.chunkIdx < len(q.world.chunkList) {
			c := q.world.chunkList[q.chunkIdx]
			q.chunkIdx++
			if c.Len() == 0 || !q.filter.matches(c.def) {
				continue
			}
			q.chunk = c
			q.chunkVersion = c.version
			q.row = -1
			break
		}
		if q.chunk == nil {
			return false
		}
	}
}

// Entity returns the current entity.
func (q *EntityQuery) Entity() Entity { return q.cur }

// Err returns ErrChunkModified if a visited chunk mutated mid-iteration.
func (q *EntityQuery) Err() error { return q.err }

// Query is a typed iterator over entities carrying component T1.
type Query[T1 any] struct {
	world        *World
	filter       Filter
	chunk        *Chunk
	col1         []byte
	id1          uint8
	size1        int
	chunkIdx     int
	row          int
	chunkVersion uint64
	cur          Entity
	err          error
	dead         bool
}

// NewQuery creates a typed query over w. T1 is added to the filter's
// required components. A type registered in no chunk yields zero results.
func NewQuery[T1 any](w *World, filter ...Filter) *Query[T1] {
	q := &Query[T1]{world: w, filter: firstFilter(filter), row: -1}
	ct, err := ComponentTypeOf[T1](w.schema)
	if err != nil {
		q.dead = true
		return q
	}
	q.id1 = ct.index
	q.size1 = ct.size
	q.filter.Require.Set(ct.index)
	return q
}

// Reset rewinds the query for reuse.
func (q *Query[T1]) Reset() {
	q.chunkIdx = 0
	q.row = -1
	q.chunk = nil
	q.err = nil
}

// Next advances to the next entity. Returns false when exhausted or on
// iterator failure; check Err afterwards.
func (q *Query[T1]) Next() bool {
	if q.err != nil || q.dead {
		return false
	}
	for {
		if q.chunk != nil {
			if q.chunk.version != q.chunkVersion {
				q.err = ErrChunkModified
				return false
			}
			for q.row++; q.row < q.chunk.Len(); q.row++ {
				e := q.chunk.entities[q.row]
				if q.filter.IncludeDisabled || q.world.dir.slots[e].state == stateEnabled {
					q.cur = e
					return true
				}
			}
		}
		q.chunk = nil
		candidates := q.world.byComponent[q.id1]
		for q.chunkIdx < len(candidates) {
			c := candidates[q.chunkIdx]
			q.chunkIdx++
			if c.Len() == 0 || !q.filter.matches(c.def) {
				continue
			}
			q.chunk = c
			q.chunkVersion = c.version
			q.col1 = c.columns[c.slotOf(q.id1)]
			q.row = -1
			break
		}
		if q.chunk == nil {
			return false
		}
	}
}

// Get returns a pointer to the component for the current entity.
func (q *Query[T1]) Get() *T1 {
	return (*T1)(unsafe.Pointer(&q.col1[q.row*q.size1]))
}

// Entity returns the current entity.
func (q *Query[T1]) Entity() Entity { return q.cur }

// Err returns ErrChunkModified if a visited chunk mutated mid-iteration.
func (q *Query[T1]) Err() error { return q.err }

// Query2 is a typed iterator over entities carrying components T1 and T2.
type Query2[T1, T2 any] struct {
	world        *World
	filter       Filter
	chunk        *Chunk
	col1, col2   []byte
	id1, id2     uint8
	size1, size2 int
	chunkIdx     int
	row          int
	chunkVersion uint64
	cur          Entity
	err          error
	dead         bool
}

// NewQuery2 creates a typed query over w for two components.
func NewQuery2[T1, T2 any](w *World, filter ...Filter) *Query2[T1, T2] {
	q := &Query2[T1, T2]{world: w, filter: firstFilter(filter), row: -1}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	if err1 != nil || err2 != nil {
		q.dead = true
		return q
	}
	q.id1, q.size1 = c1.index, c1.size
	q.id2, q.size2 = c2.index, c2.size
	q.filter.Require.Set(c1.index)
	q.filter.Require.Set(c2.index)
	return q
}

// Reset rewinds the query for reuse.
func (q *Query2[T1, T2]) Reset() {
	q.chunkIdx = 0
	q.row = -1
	q.chunk = nil
	q.err = nil
}

// Next advances to the next entity. Returns false when exhausted or on
// iterator failure; check Err afterwards.
func (q *Query2[T1, T2]) Next() bool {
	if q.err != nil || q.dead {
		return false
	}
	for {
		if q.chunk != nil {
			if q.chunk.version != q.chunkVersion {
				q.err = ErrChunkModified
				return false
			}
			for q.row++; q.row < q.chunk.Len(); q.row++ {
				e := q.chunk.entities[q.row]
				if q.filter.IncludeDisabled || q.world.dir.slots[e].state == stateEnabled {
					q.cur = e
					return true
				}
			}
		}
		q.chunk = nil
		candidates := q.world.byComponent[q.id1]
		for q.chunkIdx < len(candidates) {
			c := candidates[q.chunkIdx]
			q.chunkIdx++
			if c.Len() == 0 || !q.filter.matches(c.def) {
				continue
			}
			q.chunk = c
			q.chunkVersion = c.version
			q.col1 = c.columns[c.slotOf(q.id1)]
			q.col2 = c.columns[c.slotOf(q.id2)]
			q.row = -1
			break
		}
		if q.chunk == nil {
			return false
		}
	}
}

// Get returns pointers to the components for the current entity.
func (q *Query2[T1, T2]) Get() (*T1, *T2) {
	p1 := (*T1)(unsafe.Pointer(&q.col1[q.row*q.size1]))
	p2 := (*T2)(unsafe.Pointer(&q.col2[q.row*q.size2]))
	return p1, p2
}

// Entity returns the current entity.
func (q *Query2[T1, T2]) Entity() Entity { return q.cur }

// Err returns ErrChunkModified if a visited chunk mutated mid-iteration.
func (q *Query2[T1, T2]) Err() error { return q.err }

// Query3 is a typed iterator over entities carrying three components.
type Query3[T1, T2, T3 any] struct {
	world            *World
	filter           Filter
	chunk            *Chunk
	col1, col2, col3 []byte
	id1, id2, id3    uint8
	size1            int
	size2            int
	size3            int
	chunkIdx         int
	row              int
	chunkVersion     uint64
	cur              Entity
	err              error
	dead             bool
}

// NewQuery3 creates a typed query over w for three components.
func NewQuery3[T1, T2, T3 any](w *World, filter ...Filter) *Query3[T1, T2, T3] {
	q := &Query3[T1, T2, T3]{world: w, filter: firstFilter(filter), row: -1}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	c3, err3 := ComponentTypeOf[T3](w.schema)
	if err1 != nil || err2 != nil || err3 != nil {
		q.dead = true
		return q
	}
	q.id1, q.size1 = c1.index, c1.size
	q.id2, q.size2 = c2.index, c2.size
	q.id3, q.size3 = c3.index, c3.size
	q.filter.Require.Set(c1.index)
	q.filter.Require.Set(c2.index)
	q.filter.Require.Set(c3.index)
	return q
}

// Reset rewinds the query for reuse.
func (q *Query3[T1, T2, T3]) Reset() {
	q.chunkIdx = 0
	q.row = -1
	q.chunk = nil
	q.err = nil
}

// Next advances to the next entity. Returns false when exhausted or on
// iterator failure; check Err afterwards.
func (q *Query3[T1, T2, T3]) Next() bool {
	if q.err != nil || q.dead {
		return false
	}
	for {
		if q.chunk != nil {
			if q.chunk.version != q.chunkVersion {
				q.err = ErrChunkModified
				return false
			}
			for q.row++; q.row < q.chunk.Len(); q.row++ {
				e := q.chunk.entities[q.row]
				if q.filter.IncludeDisabled || q.world.dir.slots[e].state == stateEnabled {
					q.cur = e
					return true
				}
			}
		}
		q.chunk = nil
		candidates := q.world.byComponent[q.id1]
		for q.chunkIdx < len(candidates) {
			c := candidates[q.chunkIdx]
			q.chunkIdx++
			if c.Len() == 0 || !q.filter.matches(c.def) {
				continue
			}
			q.chunk = c
			q.chunkVersion = c.version
			q.col1 = c.columns[c.slotOf(q.id1)]
			q.col2 = c.columns[c.slotOf(q.id2)]
			q.col3 = c.columns[c.slotOf(q.id3)]
			q.row = -1
			break
		}
		if q.chunk == nil {
			return false
		}
	}
}

// Get returns pointers to the components for the current entity.
func (q *Query3[T1, T2, T3]) Get() (*T1, *T2, *T3) {
	p1 := (*T1)(unsafe.Pointer(&q.col1[q.row*q.size1]))
	p2 := (*T2)(unsafe.Pointer(&q.col2[q.row*q.size2]))
	p3 := (*T3)(unsafe.Pointer(&q.col3[q.row*q.size3]))
	return p1, p2, p3
}

// Entity returns the current entity.
func (q *Query3[T1, T2, T3]) Entity() Entity { return q.cur }

// Err returns ErrChunkModified if a visited chunk mutated mid-iteration.
func (q *Query3[T1, T2, T3]) Err() error { return q.err }

// Query4 is a typed iterator over entities carrying four components.
type Query4[T1, T2, T3, T4 any] struct {
	world                  *World
	filter                 Filter
	chunk                  *Chunk
	col1, col2, col3, col4 []byte
	id1, id2, id3, id4     uint8
	size1                  int
	size2                  int
	size3                  int
	size4                  int
	chunkIdx               int
	row                    int
	chunkVersion           uint64
	cur                    Entity
	err                    error
	dead                   bool
}

// NewQuery4 creates a typed query over w for four components.
func NewQuery4[T1, T2, T3, T4 any](w *World, filter ...Filter) *Query4[T1, T2, T3, T4] {
	q := &Query4[T1, T2, T3, T4]{world: w, filter: firstFilter(filter), row: -1}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	c3, err3 := ComponentTypeOf[T3](w.schema)
	c4, err4 := ComponentTypeOf[T4](w.schema)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		q.dead = true
		return q
	}
	q.id1, q.size1 = c1.index, c1.size
	q.id2, q.size2 = c2.index, c2.size
	q.id3, q.size3 = c3.index, c3.size
	q.id4, q.size4 = c4.index, c4.size
	q.filter.Require.Set(c1.index)
	q.filter.Require.Set(c2.index)
	q.filter.Require.Set(c3.index)
	q.filter.Require.Set(c4.index)
	return q
}

// Reset rewinds the query for reuse.
func (q *Query4[T1, T2, T3, T4]) Reset() {
	q.chunkIdx = 0
	q.row = -1
	q.chunk = nil
	q.err = nil
}

// Next advances to the next entity. Returns false when exhausted or on
// iterator failure; check Err afterwards.
func (q *Query4[T1, T2, T3, T4]) Next() bool {
	if q.err != nil || q.dead {
		return false
	}
	for {
		if q.chunk != nil {
			if q.chunk.version != q.chunkVersion {
				q.err = ErrChunkModified
				return false
			}
			for q.row++; q.row < q.chunk.Len(); q.row++ {
				e := q.chunk.entities[q.row]
				if q.filter.IncludeDisabled || q.world.dir.slots[e].state == stateEnabled {
					q.cur = e
					return true
				}
			}
		}
		q.chunk = nil
		candidates := q.world.byComponent[q.id1]
		for q.chunkIdx < len(candidates) {
			c := candidates[q.chunkIdx]
			q.chunkIdx++
			if c.Len() == 0 || !q.filter.matches(c.def) {
				continue
			}
			q.chunk = c
			q.chunkVersion = c.version
			q.col1 = c.columns[c.slotOf(q.id1)]
			q.col2 = c.columns[c.slotOf(q.id2)]
			q.col3 = c.columns[c.slotOf(q.id3)]
			q.col4 = c.columns[c.slotOf(q.id4)]
			q.row = -1
			break
		}
		if q.chunk == nil {
			return false
		}
	}
}

// Get returns pointers to the components for the current entity.
func (q *Query4[T1, T2, T3, T4]) Get() (*T1, *T2, *T3, *T4) {
	p1 := (*T1)(unsafe.Pointer(&q.col1[q.row*q.size1]))
	p2 := (*T2)(unsafe.Pointer(&q.col2[q.row*q.size2]))
	p3 := (*T3)(unsafe.Pointer(&q.col3[q.row*q.size3]))
	p4 := (*T4)(unsafe.Pointer(&q.col4[q.row*q.size4]))
	return p1, p2, p3, p4
}

// Entity returns the current entity.
func (q *Query4[T1, T2, T3, T4]) Entity() Entity { return q.cur }

// Err returns ErrChunkModified if a visited chunk mutated mid-iteration.
func (q *Query4[T1, T2, T3, T4]) Err() error { return q.err }
