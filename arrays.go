package hakoniwa

import "unsafe"

// Per-entity arrays are variable-length buffers owned by the slot, keyed
// by array-element type. The first array of a type on an entity sets the
// type's bit in the definition's array mask (a chunk migration); arrays
// occupy no chunk column.

// createArrayRaw allocates the buffer for (e, idx) and migrates the chunk.
func (w *World) createArrayRaw(e Entity, idx uint8, count int, data []byte) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if _, ok := sl.arrays[idx]; ok {
		return ArrayPresentError{Entity: e, TypeIndex: idx}
	}
	size := w.schema.ArrayElementSize(idx)
	buf := make([]byte, count*size)
	copy(buf, data)
	w.migrate(sl, sl.chunk.def.WithArray(idx))
	if sl.arrays == nil {
		sl.arrays = make(map[uint8][]byte, 2)
	}
	sl.arrays[idx] = buf
	sl.flags |= flagContainsArrays
	w.notifyData(e, DataArray, idx, true)
	return nil
}

// resizeArrayRaw reallocates the buffer; new bytes are zero-filled.
func (w *World) resizeArrayRaw(e Entity, idx uint8, count int) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	buf, ok := sl.arrays[idx]
	if !ok {
		return ArrayAbsentError{Entity: e, TypeIndex: idx}
	}
	size := w.schema.ArrayElementSize(idx)
	nb := make([]byte, count*size)
	copy(nb, buf)
	sl.arrays[idx] = nb
	return nil
}

// destroyArrayRaw frees the buffer and migrates the chunk.
func (w *World) destroyArrayRaw(e Entity, idx uint8) error {
	sl := w.dir.get(e)
	if sl == nil {
		return EntityNotFoundError{Entity: e}
	}
	if _, ok := sl.arrays[idx]; !ok {
		return ArrayAbsentError{Entity: e, TypeIndex: idx}
	}
	delete(sl.arrays, idx)
	if len(sl.arrays) == 0 {
		sl.flags &^= flagContainsArrays
	}
	w.migrate(sl, sl.chunk.def.WithoutArray(idx))
	w.notifyData(e, DataArray, idx, false)
	return nil
}

// arrayRaw returns the buffer and element size for (e, idx).
func (w *World) arrayRaw(e Entity, idx uint8) ([]byte, int, error) {
	sl := w.dir.get(e)
	if sl == nil {
		return nil, 0, EntityNotFoundError{Entity: e}
	}
	buf, ok := sl.arrays[idx]
	if !ok {
		return nil, 0, ArrayAbsentError{Entity: e, TypeIndex: idx}
	}
	return buf, w.schema.ArrayElementSize(idx), nil
}

// setArrayElementsRaw overwrites elements starting at start.
func (w *World) setArrayElementsRaw(e Entity, idx uint8, start int, data []byte) error {
	buf, size, err := w.arrayRaw(e, idx)
	if err != nil {
		return err
	}
	off := start * size
	if start < 0 || off+len(data) > len(buf) {
		return ArrayBoundsError{Entity: e, TypeIndex: idx, Index: start}
	}
	copy(buf[off:], data)
	return nil
}

// CreateArray allocates a per-entity array of n elements of T, zeroed,
// and returns a mutable view of it.
func CreateArray[T any](w *World, e Entity, n int) ([]T, error) {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return nil, err
	}
	if err := w.createArrayRaw(e, at.index, n, nil); err != nil {
		return nil, err
	}
	return GetArray[T](w, e)
}

// CreateArrayFrom allocates a per-entity array initialized from vals.
func CreateArrayFrom[T any](w *World, e Entity, vals []T) ([]T, error) {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return nil, err
	}
	if err := w.createArrayRaw(e, at.index, len(vals), sliceBytes(vals, at.size)); err != nil {
		return nil, err
	}
	return GetArray[T](w, e)
}

// ResizeArray reallocates e's array of T to n elements; new elements are
// zero-filled. Existing views are invalidated.
func ResizeArray[T any](w *World, e Entity, n int) error {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.resizeArrayRaw(e, at.index, n)
}

// DestroyArray frees e's array of T.
func DestroyArray[T any](w *World, e Entity) error {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return err
	}
	return w.destroyArrayRaw(e, at.index)
}

// GetArray returns a mutable view over e's array of T. The view is
// invalidated by ResizeArray and DestroyArray.
func GetArray[T any](w *World, e Entity) ([]T, error) {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return nil, err
	}
	buf, size, err := w.arrayRaw(e, at.index)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), len(buf)/size), nil
}

// HasArray reports whether e owns an array of T.
func HasArray[T any](w *World, e Entity) bool {
	at, err := ArrayTypeOf[T](w.schema)
	if err != nil {
		return false
	}
	sl := w.dir.get(e)
	if sl == nil {
		return false
	}
	_, ok := sl.arrays[at.index]
	return ok
}
