package hakoniwa

import (
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// TypeKind distinguishes the three index spaces of a schema.
type TypeKind uint8

const (
	KindComponent TypeKind = iota
	KindArray
	KindTag

	kindCount = 3
)

// Disabled is the reserved tag encoding the locally-disabled state. It is
// always present in a schema at tag index 0.
type Disabled struct{}

// DisabledTagIndex is the fixed tag index of the reserved Disabled tag.
const DisabledTagIndex uint8 = 0

// schemaKind holds one kind's dense index assignment.
type schemaKind struct {
	byHash  map[uint64]uint8
	byType  map[reflect.Type]uint8 // lookup cache, byHash is authoritative
	layouts []*TypeLayout
	sizes   []uint32
}

// Schema assigns small dense indices to component, array-element, and tag
// types for one world. Indices are assigned monotonically at registration
// time and never reused.
type Schema struct {
	kinds [kindCount]schemaKind
}

// NewSchema creates an empty schema with the Disabled tag reserved at
// tag index 0.
func NewSchema() *Schema {
	s := &Schema{}
	for k := range s.kinds {
		s.kinds[k].byHash = make(map[uint64]uint8)
		s.kinds[k].byType = make(map[reflect.Type]uint8)
	}
	RegisterTag[Disabled](s)
	return s
}

// register assigns (or returns) the index for layout l of the given kind.
// Exhausting the 256-wide index space is fatal.
func (s *Schema) register(kind TypeKind, t reflect.Type, l *TypeLayout) uint8 {
	k := &s.kinds[kind]
	if idx, ok := k.byHash[l.Hash()]; ok {
		if t != nil {
			k.byType[t] = idx
		}
		return idx
	}
	if len(k.layouts) >= MaxTypes {
		panic(DefinitionCapacityError{Kind: kind})
	}
	idx := uint8(len(k.layouts))
	k.layouts = append(k.layouts, l)
	k.sizes = append(k.sizes, uint32(l.Size))
	k.byHash[l.Hash()] = idx
	if t != nil {
		k.byType[t] = idx
	}
	return idx
}

// lookup resolves the index for T within one kind.
func (s *Schema) lookup(kind TypeKind, t reflect.Type) (uint8, error) {
	k := &s.kinds[kind]
	if idx, ok := k.byType[t]; ok {
		return idx, nil
	}
	name := typeName(t)
	if idx, ok := k.byHash[xxhash.Sum64String(name)]; ok {
		k.byType[t] = idx
		return idx, nil
	}
	return 0, TypeNotRegisteredError{Name: name}
}

// RegisterComponent assigns a component index to T in s and returns the
// typed handle. Registration is idempotent.
func RegisterComponent[T any](s *Schema) ComponentType[T] {
	l := RegisterType[T]()
	var zero T
	idx := s.register(KindComponent, reflect.TypeOf(zero), l)
	return ComponentType[T]{index: idx, size: int(l.Size)}
}

// RegisterArrayElement assigns an array-element index to T in s and
// returns the typed handle.
func RegisterArrayElement[T any](s *Schema) ArrayType[T] {
	l := RegisterType[T]()
	var zero T
	idx := s.register(KindArray, reflect.TypeOf(zero), l)
	return ArrayType[T]{index: idx, size: int(l.Size)}
}

// RegisterTag assigns a tag index to T in s and returns the typed handle.
// Tags must be zero-size marker types.
func RegisterTag[T any](s *Schema) TagType[T] {
	var zero T
	if unsafe.Sizeof(zero) != 0 {
		panic("tags must be zero-size marker types")
	}
	l := RegisterType[T]()
	idx := s.register(KindTag, reflect.TypeOf(zero), l)
	return TagType[T]{index: idx}
}

// ComponentTypeOf resolves the component handle for an already-registered T.
func ComponentTypeOf[T any](s *Schema) (ComponentType[T], error) {
	var zero T
	idx, err := s.lookup(KindComponent, reflect.TypeOf(zero))
	if err != nil {
		return ComponentType[T]{}, err
	}
	return ComponentType[T]{index: idx, size: int(s.kinds[KindComponent].sizes[idx])}, nil
}

// ArrayTypeOf resolves the array handle for an already-registered T.
func ArrayTypeOf[T any](s *Schema) (ArrayType[T], error) {
	var zero T
	idx, err := s.lookup(KindArray, reflect.TypeOf(zero))
	if err != nil {
		return ArrayType[T]{}, err
	}
	return ArrayType[T]{index: idx, size: int(s.kinds[KindArray].sizes[idx])}, nil
}

// TagTypeOf resolves the tag handle for an already-registered T.
func TagTypeOf[T any](s *Schema) (TagType[T], error) {
	var zero T
	idx, err := s.lookup(KindTag, reflect.TypeOf(zero))
	if err != nil {
		return TagType[T]{}, err
	}
	return TagType[T]{index: idx}, nil
}

// ComponentCount returns the number of registered component types.
func (s *Schema) ComponentCount() int { return len(s.kinds[KindComponent].layouts) }

// ArrayCount returns the number of registered array-element types.
func (s *Schema) ArrayCount() int { return len(s.kinds[KindArray].layouts) }

// TagCount returns the number of registered tag types.
func (s *Schema) TagCount() int { return len(s.kinds[KindTag].layouts) }

// ComponentSize returns the byte size of the component at idx.
func (s *Schema) ComponentSize(idx uint8) int {
	return int(s.kinds[KindComponent].sizes[idx])
}

// ArrayElementSize returns the element byte size of the array type at idx.
func (s *Schema) ArrayElementSize(idx uint8) int {
	return int(s.kinds[KindArray].sizes[idx])
}

// indexForHash resolves a kind's index by type-name hash.
func (s *Schema) indexForHash(kind TypeKind, hash uint64) (uint8, bool) {
	idx, ok := s.kinds[kind].byHash[hash]
	return idx, ok
}

// CopyFrom merges another schema's assignments into s. Types already
// present keep their index; missing types are appended in the other
// schema's index order, so copying into an empty schema reproduces the
// other schema's assignment exactly.
func (s *Schema) CopyFrom(other *Schema) {
	for kind := TypeKind(0); kind < kindCount; kind++ {
		for _, l := range other.kinds[kind].layouts {
			s.register(kind, nil, l)
		}
	}
}
