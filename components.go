package hakoniwa

import "unsafe"

// cellBytes views v as its raw component bytes. Components must be plain
// value records: no owned heap, no interior pointers the GC must track
// across the copy.
func cellBytes[T any](v *T) []byte {
	size := int(unsafe.Sizeof(*v))
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), size)
}

// sliceBytes views vals as raw element bytes.
func sliceBytes[T any](vals []T, size int) []byte {
	if len(vals) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*size)
}

// CreateEntityWith creates an entity whose definition holds T, with the
// component column filled from v.
func CreateEntityWith[T any](w *World, v T) (Entity, error) {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return 0, err
	}
	e, err := w.CreateEntityIn(MakeDefinition(ct))
	if err != nil {
		return 0, err
	}
	w.dir.slots[e].chunk.setCell(ct.index, w.dir.slots[e].row, cellBytes(&v))
	return e, nil
}

// CreateEntityWith2 creates an entity carrying two components. The order
// of the values does not affect the resulting definition.
func CreateEntityWith2[T1, T2 any](w *World, v1 T1, v2 T2) (Entity, error) {
	c1, err := ComponentTypeOf[T1](w.schema)
	if err != nil {
		return 0, err
	}
	c2, err := ComponentTypeOf[T2](w.schema)
	if err != nil {
		return 0, err
	}
	e, err := w.CreateEntityIn(MakeDefinition(c1, c2))
	if err != nil {
		return 0, err
	}
	sl := &w.dir.slots[e]
	sl.chunk.setCell(c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(c2.index, sl.row, cellBytes(&v2))
	return e, nil
}

// CreateEntityWith3 creates an entity carrying three components.
func CreateEntityWith3[T1, T2, T3 any](w *World, v1 T1, v2 T2, v3 T3) (Entity, error) {
	c1, err := ComponentTypeOf[T1](w.schema)
	if err != nil {
		return 0, err
	}
	c2, err := ComponentTypeOf[T2](w.schema)
	if err != nil {
		return 0, err
	}
	c3, err := ComponentTypeOf[T3](w.schema)
	if err != nil {
		return 0, err
	}
	e, err := w.CreateEntityIn(MakeDefinition(c1, c2, c3))
	if err != nil {
		return 0, err
	}
	sl := &w.dir.slots[e]
	sl.chunk.setCell(c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(c2.index, sl.row, cellBytes(&v2))
	sl.chunk.setCell(c3.index, sl.row, cellBytes(&v3))
	return e, nil
}

// CreateEntityWith4 creates an entity carrying four components.
func CreateEntityWith4[T1, T2, T3, T4 any](w *World, v1 T1, v2 T2, v3 T3, v4 T4) (Entity, error) {
	c1, err := ComponentTypeOf[T1](w.schema)
	if err != nil {
		return 0, err
	}
	c2, err := ComponentTypeOf[T2](w.schema)
	if err != nil {
		return 0, err
	}
	c3, err := ComponentTypeOf[T3](w.schema)
	if err != nil {
		return 0, err
	}
	c4, err := ComponentTypeOf[T4](w.schema)
	if err != nil {
		return 0, err
	}
	e, err := w.CreateEntityIn(MakeDefinition(c1, c2, c3, c4))
	if err != nil {
		return 0, err
	}
	sl := &w.dir.slots[e]
	sl.chunk.setCell(c1.index, sl.row, cellBytes(&v1))
	sl.chunk.setCell(c2.index, sl.row, cellBytes(&v2))
	sl.chunk.setCell(c3.index, sl.row, cellBytes(&v3))
	sl.chunk.setCell(c4.index, sl.row, cellBytes(&v4))
	return e, nil
}

// AddComponent adds a zeroed component of type T to e and returns a
// pointer into the column, valid until the next structural mutation of
// the entity's chunk. It is an error if the component is already present.
func AddComponent[T any](w *World, e Entity) (*T, error) {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return nil, err
	}
	if err := w.addComponentRaw(e, ct.index, nil); err != nil {
		return nil, err
	}
	sl := &w.dir.slots[e]
	return (*T)(unsafe.Pointer(&sl.chunk.cell(ct.index, sl.row)[0])), nil
}

// AddComponentValue adds a component of type T to e, filled from v.
func AddComponentValue[T any](w *World, e Entity, v T) error {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.addComponentRaw(e, ct.index, cellBytes(&v))
}

// RemoveComponent removes T from e. It is an error if absent.
func RemoveComponent[T any](w *World, e Entity) error {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.removeComponentRaw(e, ct.index)
}

// GetComponent returns a copy of e's component of type T.
func GetComponent[T any](w *World, e Entity) (T, error) {
	var v T
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return v, err
	}
	cell, err := w.componentCellOf(e, ct.index)
	if err != nil {
		return v, err
	}
	copy(cellBytes(&v), cell)
	return v, nil
}

// ComponentRef returns a pointer into the column holding e's component of
// type T. The pointer is invalidated by the next structural mutation of
// the entity's chunk.
func ComponentRef[T any](w *World, e Entity) (*T, error) {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return nil, err
	}
	cell, err := w.componentCellOf(e, ct.index)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(&cell[0])), nil
}

// SetComponent overwrites e's present component of type T in place.
func SetComponent[T any](w *World, e Entity, v T) error {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.setComponentRaw(e, ct.index, cellBytes(&v))
}

// HasComponent reports whether e carries a component of type T.
func HasComponent[T any](w *World, e Entity) bool {
	ct, err := ComponentTypeOf[T](w.schema)
	if err != nil {
		return false
	}
	return w.hasComponentRaw(e, ct.index)
}

// AddTag adds the tag T to e. It is an error if already present.
func AddTag[T any](w *World, e Entity) error {
	tt, err := TagTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.addTagRaw(e, tt.index)
}

// RemoveTag removes the tag T from e. It is an error if absent.
func RemoveTag[T any](w *World, e Entity) error {
	tt, err := TagTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.removeTagRaw(e, tt.index)
}

// HasTag reports whether e carries the tag T.
func HasTag[T any](w *World, e Entity) bool {
	tt, err := TagTypeOf[T](w.schema)
	if err != nil {
		return false
	}
	return w.hasTagRaw(e, tt.index)
}
