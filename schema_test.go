package hakoniwa

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaAssignsDenseIndices(t *testing.T) {
	s := NewSchema()
	apple := RegisterComponent[Apple](s)
	berry := RegisterComponent[Berry](s)

	assert.Equal(t, uint8(0), apple.Index())
	assert.Equal(t, uint8(1), berry.Index())
	assert.Equal(t, 2, s.ComponentCount())
	assert.Equal(t, 4, apple.Size())
	assert.Equal(t, 4, s.ComponentSize(apple.Index()))

	// Registration is idempotent.
	again := RegisterComponent[Apple](s)
	assert.Equal(t, apple.Index(), again.Index())
	assert.Equal(t, 2, s.ComponentCount())
}

func TestSchemaReservesDisabledTag(t *testing.T) {
	s := NewSchema()
	assert.Equal(t, 1, s.TagCount())
	tt, err := TagTypeOf[Disabled](s)
	require.NoError(t, err)
	assert.Equal(t, DisabledTagIndex, tt.Index())

	thing := RegisterTag[IsThing](s)
	assert.Equal(t, uint8(1), thing.Index())
}

func TestSchemaKindsAreIndependent(t *testing.T) {
	s := NewSchema()
	comp := RegisterComponent[Position](s)
	arr := RegisterArrayElement[Position](s)
	assert.Equal(t, uint8(0), comp.Index())
	assert.Equal(t, uint8(0), arr.Index())
	assert.Equal(t, int(8), s.ArrayElementSize(arr.Index()))
}

func TestSchemaLookupUnregistered(t *testing.T) {
	s := NewSchema()
	_, err := ComponentTypeOf[Apple](s)
	require.IsType(t, TypeNotRegisteredError{}, err)
	_, err = ArrayTypeOf[Apple](s)
	require.IsType(t, TypeNotRegisteredError{}, err)
	_, err = TagTypeOf[IsThing](s)
	require.IsType(t, TypeNotRegisteredError{}, err)
}

func TestSchemaCopyFromReproducesIndices(t *testing.T) {
	src := NewSchema()
	RegisterComponent[Apple](src)
	RegisterComponent[Berry](src)
	RegisterArrayElement[int32](src)
	RegisterTag[IsThing](src)

	dst := NewSchema()
	dst.CopyFrom(src)

	for kind := TypeKind(0); kind < kindCount; kind++ {
		require.Equal(t, len(src.kinds[kind].layouts), len(dst.kinds[kind].layouts), "kind %d", kind)
		for idx, l := range src.kinds[kind].layouts {
			got, ok := dst.indexForHash(kind, l.Hash())
			require.True(t, ok)
			assert.Equal(t, uint8(idx), got)
		}
	}
}

func TestSchemaSerializationRoundTrip(t *testing.T) {
	s := NewSchema()
	RegisterComponent[Apple](s)
	RegisterComponent[Position](s)
	RegisterArrayElement[int64](s)
	RegisterTag[IsThing](s)

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadSchema(&buf)
	require.NoError(t, err)
	require.Equal(t, s.ComponentCount(), got.ComponentCount())
	require.Equal(t, s.ArrayCount(), got.ArrayCount())
	require.Equal(t, s.TagCount(), got.TagCount())
	for kind := TypeKind(0); kind < kindCount; kind++ {
		for idx, l := range s.kinds[kind].layouts {
			gl := got.kinds[kind].layouts[idx]
			assert.Equal(t, l.Name, gl.Name)
			assert.Equal(t, l.Size, gl.Size)
			assert.Equal(t, l.Fields, gl.Fields)
		}
	}
}

func TestSchemaIndexSpaceExhausted(t *testing.T) {
	s := NewSchema()
	for i := 0; i < MaxTypes; i++ {
		s.register(KindComponent, nil, &TypeLayout{Name: fmt.Sprintf("synthetic.T%d", i), Size: 4})
	}
	require.Equal(t, MaxTypes, s.ComponentCount())

	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(DefinitionCapacityError)
		assert.True(t, ok, "panic value is DefinitionCapacityError, got %T", r)
	}()
	s.register(KindComponent, nil, &TypeLayout{Name: "synthetic.Overflow", Size: 4})
}

func TestTypeRegistry(t *testing.T) {
	l1 := RegisterType[Apple]()
	l2 := RegisterType[Apple]()
	require.Same(t, l1, l2)
	assert.True(t, IsRegistered[Apple]())
	assert.Equal(t, uint16(4), l1.Size)
	require.Len(t, l1.Fields, 1)
	assert.Equal(t, "Bites", l1.Fields[0].Name)

	got, ok := LayoutFor(l1.Name)
	require.True(t, ok)
	require.Same(t, l1, got)
	got, ok = LayoutForHash(l1.Hash())
	require.True(t, ok)
	require.Same(t, l1, got)
}
