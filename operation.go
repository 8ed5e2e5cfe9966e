package hakoniwa

import "fmt"

// opCode identifies one deferred instruction.
type opCode uint8

const (
	opCreateEntity opCode = iota
	opCreateEntities
	opSelectEntity
	opSelectPreviouslyCreated
	opSelectEntities
	opClearSelection
	opDestroySelected
	opSetParentToPreviouslyCreated
	opAddComponent
	opRemoveComponent
	opAddTag
	opRemoveTag
	opCreateArray
	opResizeArray
	opSetArrayElement
	opSetArrayElements
	opDestroyArray

	opCodeCount
)

// operation is one fixed-size instruction; variable payloads live in the
// buffer's arena, id lists in the id pool.
type operation struct {
	code       opCode
	typeIdx    uint8
	arg        int32 // count, offset-from-end, element index, or start
	entity     Entity
	payloadOff uint32
	payloadLen uint32
	idsOff     uint32
	idsLen     uint32
}

// OperationBuffer records world mutations abstractly so they can be
// collected during iteration and replayed afterwards, or shipped between
// worlds. Instructions apply to the current selection; CreateEntity and
// CreateEntities replace the selection with the ids they allocate.
type OperationBuffer struct {
	ops   []operation
	arena []byte
	ids   []Entity
}

// NewOperationBuffer creates an empty buffer.
func NewOperationBuffer() *OperationBuffer {
	return &OperationBuffer{}
}

// Reset empties the buffer, retaining capacity.
func (b *OperationBuffer) Reset() {
	b.ops = b.ops[:0]
	b.arena = b.arena[:0]
	b.ids = b.ids[:0]
}

// Len returns the number of recorded instructions.
func (b *OperationBuffer) Len() int { return len(b.ops) }

func (b *OperationBuffer) push(op operation) {
	b.ops = append(b.ops, op)
}

func (b *OperationBuffer) payload(data []byte) (uint32, uint32) {
	off := uint32(len(b.arena))
	b.arena = append(b.arena, data...)
	return off, uint32(len(data))
}

// CreateEntity records allocation of one entity in the empty chunk.
func (b *OperationBuffer) CreateEntity() {
	b.push(operation{code: opCreateEntity})
}

// CreateEntities records bulk allocation of n entities.
func (b *OperationBuffer) CreateEntities(n int) {
	b.push(operation{code: opCreateEntities, arg: int32(n)})
}

// SelectEntity adds e to the selection.
func (b *OperationBuffer) SelectEntity(e Entity) {
	b.push(operation{code: opSelectEntity, entity: e})
}

// SelectPreviouslyCreated adds the id created k steps before the current
// position to the selection (0 = most recent).
func (b *OperationBuffer) SelectPreviouslyCreated(k int) {
	b.push(operation{code: opSelectPreviouslyCreated, arg: int32(k)})
}

// SelectEntities adds the given ids to the selection.
func (b *OperationBuffer) SelectEntities(es ...Entity) {
	off := uint32(len(b.ids))
	b.ids = append(b.ids, es...)
	b.push(operation{code: opSelectEntities, idsOff: off, idsLen: uint32(len(es))})
}

// ClearSelection empties the selection, keeping the created-id history.
func (b *OperationBuffer) ClearSelection() {
	b.push(operation{code: opClearSelection})
}

// DestroySelected destroys every selected entity, then clears the
// selection.
func (b *OperationBuffer) DestroySelected() {
	b.push(operation{code: opDestroySelected})
}

// SetParentToPreviouslyCreated parents every selected entity under the id
// created k steps before the current position.
func (b *OperationBuffer) SetParentToPreviouslyCreated(k int) {
	b.push(operation{code: opSetParentToPreviouslyCreated, arg: int32(k)})
}

// AddComponent records adding the component typeIdx with the given cell
// bytes (nil leaves the cell zeroed).
func (b *OperationBuffer) AddComponent(typeIdx uint8, data []byte) {
	off, n := b.payload(data)
	b.push(operation{code: opAddComponent, typeIdx: typeIdx, payloadOff: off, payloadLen: n})
}

// RemoveComponent records removal of the component typeIdx.
func (b *OperationBuffer) RemoveComponent(typeIdx uint8) {
	b.push(operation{code: opRemoveComponent, typeIdx: typeIdx})
}

// AddTag records adding the tag typeIdx.
func (b *OperationBuffer) AddTag(typeIdx uint8) {
	b.push(operation{code: opAddTag, typeIdx: typeIdx})
}

// RemoveTag records removal of the tag typeIdx.
func (b *OperationBuffer) RemoveTag(typeIdx uint8) {
	b.push(operation{code: opRemoveTag, typeIdx: typeIdx})
}

// CreateArray records allocation of an n-element array of typeIdx,
// optionally initialized from data.
func (b *OperationBuffer) CreateArray(typeIdx uint8, n int, data []byte) {
	off, plen := b.payload(data)
	b.push(operation{code: opCreateArray, typeIdx: typeIdx, arg: int32(n), payloadOff: off, payloadLen: plen})
}

// ResizeArray records resizing the array typeIdx to n elements.
func (b *OperationBuffer) ResizeArray(typeIdx uint8, n int) {
	b.push(operation{code: opResizeArray, typeIdx: typeIdx, arg: int32(n)})
}

// SetArrayElement records overwriting element i of the array typeIdx.
func (b *OperationBuffer) SetArrayElement(typeIdx uint8, i int, data []byte) {
	off, n := b.payload(data)
	b.push(operation{code: opSetArrayElement, typeIdx: typeIdx, arg: int32(i), payloadOff: off, payloadLen: n})
}

// SetArrayElements records overwriting elements starting at start.
func (b *OperationBuffer) SetArrayElements(typeIdx uint8, start int, data []byte) {
	off, n := b.payload(data)
	b.push(operation{code: opSetArrayElements, typeIdx: typeIdx, arg: int32(start), payloadOff: off, payloadLen: n})
}

// DestroyArray records freeing the array typeIdx.
func (b *OperationBuffer) DestroyArray(typeIdx uint8) {
	b.push(operation{code: opDestroyArray, typeIdx: typeIdx})
}

// OpAddComponent records adding a component of type T filled from v.
func OpAddComponent[T any](b *OperationBuffer, t ComponentType[T], v T) {
	b.AddComponent(t.Index(), cellBytes(&v))
}

// OpRemoveComponent records removing the component of type T.
func OpRemoveComponent[T any](b *OperationBuffer, t ComponentType[T]) {
	b.RemoveComponent(t.Index())
}

// OpAddTag records adding the tag T.
func OpAddTag[T any](b *OperationBuffer, t TagType[T]) {
	b.AddTag(t.Index())
}

// OpRemoveTag records removing the tag T.
func OpRemoveTag[T any](b *OperationBuffer, t TagType[T]) {
	b.RemoveTag(t.Index())
}

// OpCreateArray records creating an array of T initialized from vals.
func OpCreateArray[T any](b *OperationBuffer, t ArrayType[T], vals []T) {
	b.CreateArray(t.Index(), len(vals), sliceBytes(vals, t.Size()))
}

// OpSetArrayElement records overwriting element i of the array of T.
func OpSetArrayElement[T any](b *OperationBuffer, t ArrayType[T], i int, v T) {
	b.SetArrayElement(t.Index(), i, cellBytes(&v))
}

// OpSetArrayElements records overwriting elements starting at start.
func OpSetArrayElements[T any](b *OperationBuffer, t ArrayType[T], start int, vals []T) {
	b.SetArrayElements(t.Index(), start, sliceBytes(vals, t.Size()))
}

// OpDestroyArray records freeing the array of T.
func OpDestroyArray[T any](b *OperationBuffer, t ArrayType[T]) {
	b.DestroyArray(t.Index())
}

// Perform replays the buffer against w. Selection state starts empty.
// The first failing instruction aborts the replay; effects already
// applied are not rolled back.
func (w *World) Perform(b *OperationBuffer) error {
	var selection []Entity
	var created []Entity

	prevCreated := func(k int) (Entity, error) {
		if k < 0 || k >= len(created) {
			return 0, fmt.Errorf("no entity created %d steps back", k)
		}
		return created[len(created)-1-k], nil
	}

	for i := range b.ops {
		op := &b.ops[i]
		var data []byte
		if op.payloadLen > 0 {
			data = b.arena[op.payloadOff : op.payloadOff+op.payloadLen]
		}
		switch op.code {
		case opCreateEntity:
			e := w.CreateEntity()
			created = append(created, e)
			selection = append(selection[:0], e)
		case opCreateEntities:
			es, err := w.CreateEntities(int(op.arg), Definition{})
			if err != nil {
				return err
			}
			created = append(created, es...)
			selection = append(selection[:0], es...)
		case opSelectEntity:
			selection = append(selection, op.entity)
		case opSelectPreviouslyCreated:
			e, err := prevCreated(int(op.arg))
			if err != nil {
				return err
			}
			selection = append(selection, e)
		case opSelectEntities:
			selection = append(selection, b.ids[op.idsOff:op.idsOff+op.idsLen]...)
		case opClearSelection:
			selection = selection[:0]
		case opDestroySelected:
			for _, e := range selection {
				if err := w.DestroyEntity(e); err != nil {
					return err
				}
			}
			selection = selection[:0]
		case opSetParentToPreviouslyCreated:
			p, err := prevCreated(int(op.arg))
			if err != nil {
				return err
			}
			for _, e := range selection {
				if err := w.SetParent(e, p); err != nil {
					return err
				}
			}
		case opAddComponent:
			for _, e := range selection {
				if err := w.addComponentRaw(e, op.typeIdx, data); err != nil {
					return err
				}
			}
		case opRemoveComponent:
			for _, e := range selection {
				if err := w.removeComponentRaw(e, op.typeIdx); err != nil {
					return err
				}
			}
		case opAddTag:
			for _, e := range selection {
				if err := w.addTagRaw(e, op.typeIdx); err != nil {
					return err
				}
			}
		case opRemoveTag:
			for _, e := range selection {
				if err := w.removeTagRaw(e, op.typeIdx); err != nil {
					return err
				}
			}
		case opCreateArray:
			for _, e := range selection {
				if err := w.createArrayRaw(e, op.typeIdx, int(op.arg), data); err != nil {
					return err
				}
			}
		case opResizeArray:
			for _, e := range selection {
				if err := w.resizeArrayRaw(e, op.typeIdx, int(op.arg)); err != nil {
					return err
				}
			}
		case opSetArrayElement, opSetArrayElements:
			start := int(op.arg)
			for _, e := range selection {
				if err := w.setArrayElementsRaw(e, op.typeIdx, start, data); err != nil {
					return err
				}
			}
		case opDestroyArray:
			for _, e := range selection {
				if err := w.destroyArrayRaw(e, op.typeIdx); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown operation code %d", op.code)
		}
	}
	return nil
}
