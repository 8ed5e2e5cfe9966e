package hakoniwa

import "reflect"

// Builder creates entities in the chunk for one fixed component set,
// amortizing the definition lookup across creations.
type Builder[T1 any] struct {
	world *World
	def   Definition
	c1    ComponentType[T1]
	dead  bool
}

// NewBuilder creates a builder for entities carrying T1.
func NewBuilder[T1 any](w *World) *Builder[T1] {
	b := &Builder[T1]{world: w}
	c1, err := ComponentTypeOf[T1](w.schema)
	if err != nil {
		b.dead = true
		return b
	}
	b.c1 = c1
	b.def = MakeDefinition(c1)
	return b
}

// NewEntity creates one entity with a zeroed component.
func (b *Builder[T1]) NewEntity() (Entity, error) {
	return b.NewEntityWith(*new(T1))
}

// NewEntityWith creates one entity with the component filled from v1.
func (b *Builder[T1]) NewEntityWith(v1 T1) (Entity, error) {
	if b.dead {
		return 0, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	e, err := b.world.CreateEntityIn(b.def)
	if err != nil {
		return 0, err
	}
	sl := &b.world.dir.slots[e]
	sl.chunk.setCell(b.c1.index, sl.row, cellBytes(&v1))
	return e, nil
}

// NewEntities creates n entities with zeroed components, all in one chunk.
func (b *Builder[T1]) NewEntities(n int) ([]Entity, error) {
	if b.dead {
		return nil, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	return b.world.CreateEntities(n, b.def)
}

// Builder2 creates entities carrying two fixed components.
type Builder2[T1, T2 any] struct {
	world *World
	def   Definition
	c1    ComponentType[T1]
	c2    ComponentType[T2]
	dead  bool
}

// NewBuilder2 creates a builder for entities carrying T1 and T2.
func NewBuilder2[T1, T2 any](w *World) *Builder2[T1, T2] {
	b := &Builder2[T1, T2]{world: w}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	if err1 != nil || err2 != nil {
		b.dead = true
		return b
	}
	b.c1, b.c2 = c1, c2
	b.def = MakeDefinition(c1, c2)
	return b
}

// NewEntity creates one entity with zeroed components.
func (b *Builder2[T1, T2]) NewEntity() (Entity, error) {
	return b.NewEntityWith(*new(T1), *new(T2))
}

// NewEntityWith creates one entity with the components filled from the
// given values.
func (b *Builder2[T1, T2]) NewEntityWith(v1 T1, v2 T2) (Entity, error) {
	if b.dead {
		return 0, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	e, err := b.world.CreateEntityIn(b.def)
	if err != nil {
		return 0, err
	}
	sl := &b.world.dir.slots[e]
	sl.chunk.setCell(b.c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(b.c2.index, sl.row, cellBytes(&v2))
	return e, nil
}

// NewEntities creates n entities with zeroed components, all in one chunk.
func (b *Builder2[T1, T2]) NewEntities(n int) ([]Entity, error) {
	if b.dead {
		return nil, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	return b.world.CreateEntities(n, b.def)
}

// Builder3 creates entities carrying three fixed components.
type Builder3[T1, T2, T3 any] struct {
	world *World
	def   Definition
	c1    ComponentType[T1]
	c2    ComponentType[T2]
	c3    ComponentType[T3]
	dead  bool
}

// NewBuilder3 creates a builder for entities carrying T1, T2, and T3.
func NewBuilder3[T1, T2, T3 any](w *World) *Builder3[T1, T2, T3] {
	b := &Builder3[T1, T2, T3]{world: w}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	c3, err3 := ComponentTypeOf[T3](w.schema)
	if err1 != nil || err2 != nil || err3 != nil {
		b.dead = true
		return b
	}
	b.c1, b.c2, b.c3 = c1, c2, c3
	b.def = MakeDefinition(c1, c2, c3)
	return b
}

// NewEntity creates one entity with zeroed components.
func (b *Builder3[T1, T2, T3]) NewEntity() (Entity, error) {
	return b.NewEntityWith(*new(T1), *new(T2), *new(T3))
}

// NewEntityWith creates one entity with the components filled from the
// given values.
func (b *Builder3[T1, T2, T3]) NewEntityWith(v1 T1, v2 T2, v3 T3) (Entity, error) {
	if b.dead {
		return 0, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	e, err := b.world.CreateEntityIn(b.def)
	if err != nil {
		return 0, err
	}
	sl := &b.world.dir.slots[e]
	sl.chunk.setCell(b.c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(b.c2.index, sl.row, cellBytes(&v2))
	sl.chunk.setCell(b.c3.index, sl.row, cellBytes(&v3))
	return e, nil
}

// NewEntities creates n entities with zeroed components, all in one chunk.
func (b *Builder3[T1, T2, T3]) NewEntities(n int) ([]Entity, error) {
	if b.dead {
		return nil, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	return b.world.CreateEntities(n, b.def)
}

// Builder4 creates entities carrying four fixed components.
type Builder4[T1, T2, T3, T4 any] struct {
	world *World
	def   Definition
	c1    ComponentType[T1]
	c2    ComponentType[T2]
	c3    ComponentType[T3]
	c4    ComponentType[T4]
	dead  bool
}

// NewBuilder4 creates a builder for entities carrying T1 through T4.
func NewBuilder4[T1, T2, T3, T4 any](w *World) *Builder4[T1, T2, T3, T4] {
	b := &Builder4[T1, T2, T3, T4]{world: w}
	c1, err1 := ComponentTypeOf[T1](w.schema)
	c2, err2 := ComponentTypeOf[T2](w.schema)
	c3, err3 := ComponentTypeOf[T3](w.schema)
	c4, err4 := ComponentTypeOf[T4](w.schema)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		b.dead = true
		return b
	}
	b.c1, b.c2, b.c3, b.c4 = c1, c2, c3, c4
	b.def = MakeDefinition(c1, c2, c3, c4)
	return b
}

// NewEntity creates one entity with zeroed components.
func (b *Builder4[T1, T2, T3, T4]) NewEntity() (Entity, error) {
	return b.NewEntityWith(*new(T1), *new(T2), *new(T3), *new(T4))
}

// NewEntityWith creates one entity with the components filled from the
// given values.
func (b *Builder4[T1, T2, T3, T4]) NewEntityWith(v1 T1, v2 T2, v3 T3, v4 T4) (Entity, error) {
	if b.dead {
		return 0, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	e, err := b.world.CreateEntityIn(b.def)
	if err != nil {
		return 0, err
	}
	sl := &b.world.dir.slots[e]
	sl.chunk.setCell(b.c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(b.c2.index, sl.row, cellBytes(&v2))
	sl.chunk.setCell(b.c3.index, sl.row, cellBytes(&v3))
	sl.chunk.setCell(b.c4.index, sl.row, cellBytes(&v4))
	return e, nil
}

// NewEntities creates n entities with zeroed components, all in one chunk.
func (b *Builder4[T1, T2, T3, T4]) NewEntities(n int) ([]Entity, error) {
	if b.dead {
		return nil, TypeNotRegisteredError{Name: typeNameOf[T1]()}
	}
	return b.world.CreateEntities(n, b.def)
}

// typeNameOf returns the fully qualified name of T for error reporting.
func typeNameOf[T any]() string {
	var zero T
	return typeName(reflect.TypeOf(zero))
}
