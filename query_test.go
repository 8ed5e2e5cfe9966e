package hakoniwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryWithRequiredTag(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	isThing := RegisterTag[IsThing](schema)
	w := NewWorld(schema)

	a := w.CreateEntity()
	b, err := CreateEntityWith(w, Apple{Bites: 4})
	require.NoError(t, err)
	require.NoError(t, AddTag[IsThing](w, b))

	q := NewQuery[Apple](w, Filter{RequireTags: isThing.Mask()})
	var got []Entity
	var bites []int32
	for q.Next() {
		got = append(got, q.Entity())
		bites = append(bites, q.Get().Bites)
	}
	require.NoError(t, q.Err())
	assert.Equal(t, []Entity{b}, got)
	assert.Equal(t, []int32{4}, bites)
	_ = a
}

func TestQueryEmptyWorld(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	q := NewQuery[Apple](w)
	assert.False(t, q.Next())
	assert.NoError(t, q.Err())
}

func TestQueryTypeInNoChunk(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)
	w.CreateEntity()

	q := NewQuery[Apple](w)
	assert.False(t, q.Next())

	// A type the schema never saw yields zero results too.
	q2 := NewQuery[Velocity](w)
	assert.False(t, q2.Next())
	assert.NoError(t, q2.Err())
}

func TestQueryExclude(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	berry := RegisterComponent[Berry](schema)
	w := NewWorld(schema)

	plain, err := CreateEntityWith(w, Apple{Bites: 1})
	require.NoError(t, err)
	mixed, err := CreateEntityWith2(w, Apple{Bites: 2}, Berry{Seeds: 3})
	require.NoError(t, err)

	q := NewQuery[Apple](w, Filter{Exclude: berry.Mask()})
	var got []Entity
	for q.Next() {
		got = append(got, q.Entity())
	}
	require.NoError(t, q.Err())
	assert.Equal(t, []Entity{plain}, got)
	_ = mixed
	_ = apple
}

func TestQueryInvalidationOnTagMigration(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	RegisterTag[IsThing](schema)
	w := NewWorld(schema)

	for i := 0; i < 5; i++ {
		_, err := CreateEntityWith(w, Apple{Bites: int32(i)})
		require.NoError(t, err)
	}

	q := NewQuery[Apple](w)
	require.True(t, q.Next())
	require.NoError(t, AddTag[IsThing](w, q.Entity()))

	assert.False(t, q.Next())
	assert.ErrorIs(t, q.Err(), ErrChunkModified)
}

func TestQueryInvalidationOnDestroy(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	for i := 0; i < 3; i++ {
		_, err := CreateEntityWith(w, Apple{})
		require.NoError(t, err)
	}

	q := NewQuery[Apple](w)
	require.True(t, q.Next())
	require.NoError(t, w.DestroyEntity(q.Entity()))
	assert.False(t, q.Next())
	assert.ErrorIs(t, q.Err(), ErrChunkModified)
}

func TestQueryInPlaceWritesAllowed(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	es, err := w.CreateEntities(4, MakeDefinition(mustComponentType[Apple](t, schema)))
	require.NoError(t, err)

	q := NewQuery[Apple](w)
	for q.Next() {
		q.Get().Bites = 11
	}
	require.NoError(t, q.Err())
	for _, e := range es {
		got, err := GetComponent[Apple](w, e)
		require.NoError(t, err)
		assert.Equal(t, int32(11), got.Bites)
	}
}

func TestQuerySkipsDisabled(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	on, err := CreateEntityWith(w, Apple{Bites: 1})
	require.NoError(t, err)
	off, err := CreateEntityWith(w, Apple{Bites: 2})
	require.NoError(t, err)
	require.NoError(t, w.SetEnabled(off, false))

	var got []Entity
	q := NewQuery[Apple](w)
	for q.Next() {
		got = append(got, q.Entity())
	}
	require.NoError(t, q.Err())
	assert.Equal(t, []Entity{on}, got)

	got = nil
	q = NewQuery[Apple](w, Filter{IncludeDisabled: true})
	for q.Next() {
		got = append(got, q.Entity())
	}
	require.NoError(t, q.Err())
	assert.ElementsMatch(t, []Entity{on, off}, got)
}

func TestQuerySkipsAncestorDisabled(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Apple](schema)
	w := NewWorld(schema)

	parent := w.CreateEntity()
	child, err := CreateEntityWith(w, Apple{})
	require.NoError(t, err)
	require.NoError(t, w.SetParent(child, parent))
	require.NoError(t, w.SetEnabled(parent, false))

	// The child's own chunk carries no Disabled tag; the per-row state
	// filter must still skip it.
	q := NewQuery[Apple](w)
	assert.False(t, q.Next())
	require.NoError(t, q.Err())

	require.NoError(t, w.SetEnabled(parent, true))
	q.Reset()
	assert.True(t, q.Next())
	assert.Equal(t, child, q.Entity())
}

func TestEntityQuery(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	berry := RegisterComponent[Berry](schema)
	w := NewWorld(schema)

	bare := w.CreateEntity()
	a, err := CreateEntityWith(w, Apple{})
	require.NoError(t, err)
	ab, err := CreateEntityWith2(w, Apple{}, Berry{})
	require.NoError(t, err)

	var got []Entity
	q := NewEntityQuery(w, Filter{Require: apple.Mask()})
	for q.Next() {
		got = append(got, q.Entity())
	}
	require.NoError(t, q.Err())
	assert.ElementsMatch(t, []Entity{a, ab}, got)

	got = nil
	q = NewEntityQuery(w)
	for q.Next() {
		got = append(got, q.Entity())
	}
	require.NoError(t, q.Err())
	assert.ElementsMatch(t, []Entity{bare, a, ab}, got)
	_ = berry
}

func TestQuery2(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Position](schema)
	RegisterComponent[Velocity](schema)
	w := NewWorld(schema)

	e, err := CreateEntityWith2(w, Position{X: 1}, Velocity{DX: 2})
	require.NoError(t, err)

	q := NewQuery2[Position, Velocity](w)
	require.True(t, q.Next())
	assert.Equal(t, e, q.Entity())
	p, v := q.Get()
	p.X += v.DX
	require.False(t, q.Next())
	require.NoError(t, q.Err())

	got, err := GetComponent[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, float32(3), got.X)
}

func mustComponentType[T any](t *testing.T, s *Schema) ComponentType[T] {
	t.Helper()
	ct, err := ComponentTypeOf[T](s)
	require.NoError(t, err)
	return ct
}
