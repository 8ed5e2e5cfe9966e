package hakoniwa

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Binary format: little-endian, size-prefixed. The world stream starts
// with a 4-byte magic and a 2-byte format version so the layout can
// evolve.
const (
	worldMagic    uint32 = 0x574E4B48 // "HKNW"
	formatVersion uint16 = 1
)

// streamWriter accumulates little-endian words into an io.Writer,
// latching the first error.
type streamWriter struct {
	w       io.Writer
	n       int64
	err     error
	scratch [8]byte
}

func (sw *streamWriter) write(p []byte) {
	if sw.err != nil {
		return
	}
	n, err := sw.w.Write(p)
	sw.n += int64(n)
	sw.err = err
}

func (sw *streamWriter) u8(v uint8) {
	sw.scratch[0] = v
	sw.write(sw.scratch[:1])
}

func (sw *streamWriter) u16(v uint16) {
	binary.LittleEndian.PutUint16(sw.scratch[:2], v)
	sw.write(sw.scratch[:2])
}

func (sw *streamWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(sw.scratch[:4], v)
	sw.write(sw.scratch[:4])
}

func (sw *streamWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(sw.scratch[:8], v)
	sw.write(sw.scratch[:8])
}

func (sw *streamWriter) str8(s string) {
	sw.u8(uint8(len(s)))
	sw.write([]byte(s))
}

// streamReader reads little-endian words from an io.Reader, latching the
// first error.
type streamReader struct {
	r       io.Reader
	err     error
	scratch [8]byte
}

func (sr *streamReader) read(p []byte) {
	if sr.err != nil {
		return
	}
	_, sr.err = io.ReadFull(sr.r, p)
}

func (sr *streamReader) u8() uint8 {
	sr.read(sr.scratch[:1])
	return sr.scratch[0]
}

func (sr *streamReader) u16() uint16 {
	sr.read(sr.scratch[:2])
	return binary.LittleEndian.Uint16(sr.scratch[:2])
}

func (sr *streamReader) u32() uint32 {
	sr.read(sr.scratch[:4])
	return binary.LittleEndian.Uint32(sr.scratch[:4])
}

func (sr *streamReader) u64() uint64 {
	sr.read(sr.scratch[:8])
	return binary.LittleEndian.Uint64(sr.scratch[:8])
}

func (sr *streamReader) str8() string {
	n := int(sr.u8())
	b := make([]byte, n)
	sr.read(b)
	if sr.err != nil {
		return ""
	}
	return string(b)
}

// writeLayout encodes a TypeLayout:
// u8 nameLen, name, u16 size, u8 fieldCount, fieldCount x {u8 nameLen, name, u64 typeHash}.
func writeLayout(sw *streamWriter, l *TypeLayout) {
	sw.str8(l.Name)
	sw.u16(l.Size)
	sw.u8(uint8(len(l.Fields)))
	for _, f := range l.Fields {
		sw.str8(f.Name)
		sw.u64(f.TypeHash)
	}
}

func readLayout(sr *streamReader) *TypeLayout {
	l := &TypeLayout{Name: sr.str8(), Size: sr.u16()}
	n := int(sr.u8())
	if n > 0 {
		l.Fields = make([]TypeField, n)
		for i := range l.Fields {
			l.Fields[i] = TypeField{Name: sr.str8(), TypeHash: sr.u64()}
		}
	}
	return l
}

func writeSchema(sw *streamWriter, s *Schema) {
	for kind := TypeKind(0); kind < kindCount; kind++ {
		layouts := s.kinds[kind].layouts
		sw.u16(uint16(len(layouts)))
		for idx, l := range layouts {
			sw.u8(uint8(idx))
			writeLayout(sw, l)
		}
	}
}

// storedSchema is the schema image read from a stream, before resolution
// against a destination schema.
type storedSchema struct {
	kinds [kindCount][]*TypeLayout
}

func readStoredSchema(sr *streamReader) *storedSchema {
	st := &storedSchema{}
	for kind := TypeKind(0); kind < kindCount; kind++ {
		count := int(sr.u16())
		if count > MaxTypes {
			sr.err = fmt.Errorf("%w: %d types for kind %d", ErrInvalidFormat, count, kind)
			return st
		}
		layouts := make([]*TypeLayout, count)
		for i := 0; i < count; i++ {
			idx := int(sr.u8())
			l := readLayout(sr)
			if sr.err != nil {
				return st
			}
			if idx != i {
				sr.err = fmt.Errorf("%w: non-dense schema index %d", ErrInvalidFormat, idx)
				return st
			}
			layouts[i] = l
		}
		st.kinds[kind] = layouts
	}
	return st
}

// WriteTo encodes the schema: for each kind, u16 count then
// {u8 index, layout} records in index order.
func (s *Schema) WriteTo(out io.Writer) (int64, error) {
	sw := &streamWriter{w: out}
	writeSchema(sw, s)
	return sw.n, sw.err
}

// ReadSchema rebuilds a schema from a stream, reproducing the stored
// index assignment exactly.
func ReadSchema(r io.Reader) (*Schema, error) {
	sr := &streamReader{r: r}
	st := readStoredSchema(sr)
	if sr.err != nil {
		return nil, sr.err
	}
	s := &Schema{}
	for k := range s.kinds {
		s.kinds[k].byHash = make(map[uint64]uint8)
		s.kinds[k].byType = make(map[reflect.Type]uint8)
	}
	for kind := TypeKind(0); kind < kindCount; kind++ {
		for _, l := range st.kinds[kind] {
			s.register(kind, nil, l)
		}
	}
	return s, nil
}

// typeResolver maps a stored schema onto the destination schema's indices.
type typeResolver struct {
	comp, array, tag [MaxTypes]uint8
	sizes            [kindCount][]int
}

func resolveStored(st *storedSchema, dst *Schema) (*typeResolver, error) {
	res := &typeResolver{}
	tables := [kindCount]*[MaxTypes]uint8{&res.comp, &res.array, &res.tag}
	for kind := TypeKind(0); kind < kindCount; kind++ {
		res.sizes[kind] = make([]int, len(st.kinds[kind]))
		for i, l := range st.kinds[kind] {
			idx, ok := dst.indexForHash(kind, l.Hash())
			if !ok {
				return nil, TypeNotRegisteredError{Name: l.Name, Hash: l.Hash()}
			}
			tables[kind][i] = idx
			res.sizes[kind][i] = int(l.Size)
		}
	}
	return res, nil
}

func writeMask(sw *streamWriter, m BitMask) {
	for _, w := range m {
		sw.u64(w)
	}
}

func readMask(sr *streamReader) BitMask {
	var m BitMask
	for i := range m {
		m[i] = sr.u64()
	}
	return m
}

// WriteTo encodes the world: magic, version, schema, entities, reference
// table. Component cells are written raw in ascending type-index order.
func (w *World) WriteTo(out io.Writer) (int64, error) {
	sw := &streamWriter{w: out}
	sw.u32(worldMagic)
	sw.u16(formatVersion)
	writeSchema(sw, w.schema)

	sw.u32(uint32(w.dir.maxEntityValue()))
	sw.u32(uint32(w.dir.live))
	for id := Entity(1); int(id) < len(w.dir.slots); id++ {
		sl := &w.dir.slots[id]
		if sl.state == stateFree {
			continue
		}
		sw.u32(uint32(id))
		sw.u32(uint32(sl.parent))
		sw.u8(uint8(sl.state))
		sw.u8(uint8(sl.flags))
		writeMask(sw, sl.chunk.def.Components)
		writeMask(sw, sl.chunk.def.Arrays)
		writeMask(sw, sl.chunk.def.Tags)
		for _, idx := range sl.chunk.compIDs {
			sw.write(sl.chunk.cell(idx, sl.row))
		}
		sw.u8(uint8(len(sl.arrays)))
		arrayIDs := make([]int, 0, len(sl.arrays))
		for idx := range sl.arrays {
			arrayIDs = append(arrayIDs, int(idx))
		}
		sort.Ints(arrayIDs)
		for _, idx := range arrayIDs {
			buf := sl.arrays[uint8(idx)]
			sw.u8(uint8(idx))
			sw.u32(uint32(len(buf) / w.schema.ArrayElementSize(uint8(idx))))
			sw.write(buf)
		}
		sw.u32(uint32(sl.refStart))
		sw.u32(uint32(sl.refCount))
	}

	sw.u32(uint32(len(w.references)))
	for _, t := range w.references {
		sw.u32(uint32(t))
	}
	return sw.n, sw.err
}

// ReadWorld decodes a world stream into a new world owning schema. Every
// stored type must already be registered in schema; unknown types fail
// with TypeNotRegisteredError. Entity ids are preserved.
func ReadWorld(r io.Reader, schema *Schema) (*World, error) {
	return ReadWorldWithOptions(r, schema, WorldOptions{})
}

// ReadWorldWithOptions is ReadWorld with world construction options.
func ReadWorldWithOptions(r io.Reader, schema *Schema, opts WorldOptions) (*World, error) {
	sr := &streamReader{r: r}
	if magic := sr.u32(); sr.err == nil && magic != worldMagic {
		return nil, ErrInvalidFormat
	}
	if version := sr.u16(); sr.err == nil && version != formatVersion {
		return nil, ErrVersionMismatch
	}
	st := readStoredSchema(sr)
	if sr.err != nil {
		return nil, sr.err
	}
	res, err := resolveStored(st, schema)
	if err != nil {
		return nil, err
	}

	w := NewWorldWithOptions(schema, opts)
	maxEntity := int(sr.u32())
	for len(w.dir.slots) <= maxEntity {
		w.dir.slots = extendSlice(w.dir.slots, 1)
	}
	count := int(sr.u32())
	var scratch []byte
	for i := 0; i < count; i++ {
		id := Entity(sr.u32())
		parent := Entity(sr.u32())
		state := entityState(sr.u8())
		flags := slotFlags(sr.u8())
		storedComps := readMask(sr)
		storedArrays := readMask(sr)
		storedTags := readMask(sr)
		if sr.err != nil {
			return nil, sr.err
		}

		var def Definition
		for _, bit := range storedComps.Bits(nil) {
			def.Components.Set(res.comp[bit])
		}
		for _, bit := range storedArrays.Bits(nil) {
			def.Arrays.Set(res.array[bit])
		}
		for _, bit := range storedTags.Bits(nil) {
			def.Tags.Set(res.tag[bit])
		}

		for int(id) >= len(w.dir.slots) {
			w.dir.slots = extendSlice(w.dir.slots, 1)
		}
		c := w.getOrCreateChunk(def)
		sl := &w.dir.slots[id]
		sl.chunk = c
		sl.row = c.addEntity(id)
		sl.state = state
		sl.flags = flags | flagChildrenOutdated
		sl.parent = parent
		w.dir.live++

		for _, bit := range storedComps.Bits(nil) {
			size := res.sizes[KindComponent][bit]
			if cap(scratch) < size {
				scratch = make([]byte, size)
			}
			scratch = scratch[:size]
			sr.read(scratch)
			c.setCell(res.comp[bit], sl.row, scratch)
		}

		arrayCount := int(sr.u8())
		for a := 0; a < arrayCount; a++ {
			storedIdx := sr.u8()
			elems := int(sr.u32())
			localIdx := res.array[storedIdx]
			buf := make([]byte, elems*res.sizes[KindArray][storedIdx])
			sr.read(buf)
			if sl.arrays == nil {
				sl.arrays = make(map[uint8][]byte, arrayCount)
			}
			sl.arrays[localIdx] = buf
		}
		sl.refStart = int(sr.u32())
		sl.refCount = int(sr.u32())
		if sr.err != nil {
			return nil, sr.err
		}
	}

	refCount := int(sr.u32())
	w.references = make([]Entity, refCount)
	for i := range w.references {
		w.references[i] = Entity(sr.u32())
	}
	if sr.err != nil {
		return nil, sr.err
	}

	// Rebuild the free list and child counts from the restored slots.
	w.dir.free = w.dir.free[:0]
	for id := Entity(w.dir.maxEntityValue()); id >= 1; id-- {
		if w.dir.slots[id].state == stateFree {
			w.dir.free = append(w.dir.free, id)
		}
	}
	for id := Entity(1); int(id) < len(w.dir.slots); id++ {
		sl := &w.dir.slots[id]
		if sl.state == stateFree || sl.parent == 0 {
			continue
		}
		psl := w.dir.get(sl.parent)
		if psl != nil {
			psl.childCount++
			psl.flags |= flagContainsChildren
		}
	}
	return w, nil
}

// WriteTo encodes the buffer: u32 opCount, fixed op records, arena, id
// pool.
func (b *OperationBuffer) WriteTo(out io.Writer) (int64, error) {
	sw := &streamWriter{w: out}
	sw.u32(uint32(len(b.ops)))
	for i := range b.ops {
		op := &b.ops[i]
		sw.u8(uint8(op.code))
		sw.u8(op.typeIdx)
		sw.u32(uint32(op.arg))
		sw.u32(uint32(op.entity))
		sw.u32(op.payloadOff)
		sw.u32(op.payloadLen)
		sw.u32(op.idsOff)
		sw.u32(op.idsLen)
	}
	sw.u32(uint32(len(b.arena)))
	sw.write(b.arena)
	sw.u32(uint32(len(b.ids)))
	for _, e := range b.ids {
		sw.u32(uint32(e))
	}
	return sw.n, sw.err
}

// ReadOperationBuffer decodes a buffer encoded by WriteTo.
func ReadOperationBuffer(r io.Reader) (*OperationBuffer, error) {
	sr := &streamReader{r: r}
	b := NewOperationBuffer()
	opCount := int(sr.u32())
	if sr.err != nil {
		return nil, sr.err
	}
	b.ops = make([]operation, opCount)
	for i := range b.ops {
		code := opCode(sr.u8())
		if code >= opCodeCount {
			return nil, fmt.Errorf("%w: unknown operation code %d", ErrInvalidFormat, code)
		}
		b.ops[i] = operation{
			code:       code,
			typeIdx:    sr.u8(),
			arg:        int32(sr.u32()),
			entity:     Entity(sr.u32()),
			payloadOff: sr.u32(),
			payloadLen: sr.u32(),
			idsOff:     sr.u32(),
			idsLen:     sr.u32(),
		}
	}
	b.arena = make([]byte, int(sr.u32()))
	sr.read(b.arena)
	idCount := int(sr.u32())
	if sr.err != nil {
		return nil, sr.err
	}
	b.ids = make([]Entity, idCount)
	for i := range b.ids {
		b.ids[i] = Entity(sr.u32())
	}
	if sr.err != nil {
		return nil, sr.err
	}
	return b, nil
}
