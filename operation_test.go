package hakoniwa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationBufferCreateAndMutate(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	isThing := RegisterTag[IsThing](schema)
	w := NewWorld(schema)

	b := NewOperationBuffer()
	b.CreateEntity()
	OpAddComponent(b, apple, Apple{Bites: 3})
	OpAddTag(b, isThing)

	require.NoError(t, w.Perform(b))
	require.Equal(t, 1, w.EntityCount())

	e := Entity(1)
	require.True(t, HasComponent[Apple](w, e))
	require.True(t, HasTag[IsThing](w, e))
	got, err := GetComponent[Apple](w, e)
	require.NoError(t, err)
	assert.Equal(t, int32(3), got.Bites)
}

func TestOperationBufferBulkSelection(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	b := NewOperationBuffer()
	b.CreateEntities(3)
	OpAddComponent(b, apple, Apple{Bites: 1})

	require.NoError(t, w.Perform(b))
	require.Equal(t, 3, w.EntityCount())
	q := NewQuery[Apple](w)
	count := 0
	for q.Next() {
		count++
		assert.Equal(t, int32(1), q.Get().Bites)
	}
	require.NoError(t, q.Err())
	assert.Equal(t, 3, count)
}

func TestOperationBufferSetParentToPreviouslyCreated(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)

	b := NewOperationBuffer()
	b.CreateEntity() // parent (1 step back at the end)
	b.CreateEntity() // child, selected
	b.SetParentToPreviouslyCreated(1)

	require.NoError(t, w.Perform(b))
	parent, child := Entity(1), Entity(2)
	assert.Equal(t, parent, w.Parent(child))
	assert.Equal(t, []Entity{child}, w.Children(parent))
}

func TestOperationBufferSelectAndDestroy(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)
	a := w.CreateEntity()
	bb := w.CreateEntity()
	c := w.CreateEntity()

	b := NewOperationBuffer()
	b.SelectEntities(a, c)
	b.DestroySelected()

	require.NoError(t, w.Perform(b))
	assert.False(t, w.Alive(a))
	assert.True(t, w.Alive(bb))
	assert.False(t, w.Alive(c))
}

func TestOperationBufferArrays(t *testing.T) {
	schema := NewSchema()
	ints := RegisterArrayElement[int32](schema)
	w := NewWorld(schema)
	e := w.CreateEntity()

	b := NewOperationBuffer()
	b.SelectEntity(e)
	OpCreateArray(b, ints, []int32{1, 2, 3})
	OpSetArrayElement(b, ints, 1, int32(20))
	b.ResizeArray(ints.Index(), 5)
	OpSetArrayElements(b, ints, 3, []int32{40, 50})

	require.NoError(t, w.Perform(b))
	arr, err := GetArray[int32](w, e)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 20, 3, 40, 50}, arr)

	b.Reset()
	b.SelectEntity(e)
	OpDestroyArray(b, ints)
	require.NoError(t, w.Perform(b))
	assert.False(t, HasArray[int32](w, e))
}

func TestOperationBufferAbortsOnFailure(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	b := NewOperationBuffer()
	b.CreateEntity()
	OpAddComponent(b, apple, Apple{Bites: 1})
	OpAddComponent(b, apple, Apple{Bites: 2}) // duplicate: fails
	b.CreateEntity()                          // never reached

	err := w.Perform(b)
	require.IsType(t, ComponentPresentError{}, err)
	// Partial effects are kept, the trailing create never ran.
	assert.Equal(t, 1, w.EntityCount())
	got, err2 := GetComponent[Apple](w, Entity(1))
	require.NoError(t, err2)
	assert.Equal(t, int32(1), got.Bites)
}

func TestOperationBufferClearSelection(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	b := NewOperationBuffer()
	b.CreateEntity()
	b.ClearSelection()
	OpAddComponent(b, apple, Apple{Bites: 1}) // applies to nobody
	b.SelectPreviouslyCreated(0)
	OpAddComponent(b, apple, Apple{Bites: 2})

	require.NoError(t, w.Perform(b))
	got, err := GetComponent[Apple](w, Entity(1))
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Bites)
}

func TestOperationBufferSerializationRoundTrip(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	ints := RegisterArrayElement[int32](schema)

	b := NewOperationBuffer()
	b.CreateEntity()
	OpAddComponent(b, apple, Apple{Bites: 7})
	OpCreateArray(b, ints, []int32{5, 6})
	b.CreateEntity()
	b.SetParentToPreviouslyCreated(1)

	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)
	decoded, err := ReadOperationBuffer(&buf)
	require.NoError(t, err)
	require.Equal(t, b.Len(), decoded.Len())

	// Replaying the decoded buffer produces the same world as the
	// original.
	w1 := NewWorld(schema)
	require.NoError(t, w1.Perform(b))
	w2 := NewWorld(schema)
	require.NoError(t, w2.Perform(decoded))

	require.Equal(t, w1.EntityCount(), w2.EntityCount())
	for id := Entity(1); id <= w1.MaxEntityValue(); id++ {
		require.Equal(t, w1.Alive(id), w2.Alive(id))
		if !w1.Alive(id) {
			continue
		}
		d1, _ := w1.DefinitionOf(id)
		d2, _ := w2.DefinitionOf(id)
		require.Equal(t, d1, d2)
		require.Equal(t, w1.Parent(id), w2.Parent(id))
	}
	a1, err := GetArray[int32](w1, Entity(1))
	require.NoError(t, err)
	a2, err := GetArray[int32](w2, Entity(1))
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestOperationBufferReset(t *testing.T) {
	b := NewOperationBuffer()
	b.CreateEntity()
	b.AddComponent(0, []byte{1, 2, 3, 4})
	require.Equal(t, 2, b.Len())
	b.Reset()
	assert.Equal(t, 0, b.Len())

	w := NewWorld(NewSchema())
	require.NoError(t, w.Perform(b))
	assert.Equal(t, 0, w.EntityCount())
}
