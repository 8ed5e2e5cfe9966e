package hakoniwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderNewEntityWith(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Position](schema)
	RegisterComponent[Velocity](schema)
	w := NewWorld(schema)

	b := NewBuilder2[Position, Velocity](w)
	e, err := b.NewEntityWith(Position{X: 1}, Velocity{DX: 2})
	require.NoError(t, err)

	p, err := GetComponent[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, float32(1), p.X)
	v, err := GetComponent[Velocity](w, e)
	require.NoError(t, err)
	assert.Equal(t, float32(2), v.DX)
}

func TestBuilderNewEntitiesShareChunk(t *testing.T) {
	schema := NewSchema()
	pos := RegisterComponent[Position](schema)
	w := NewWorld(schema)

	b := NewBuilder[Position](w)
	es, err := b.NewEntities(10)
	require.NoError(t, err)
	require.Len(t, es, 10)

	c, ok := w.ChunkFor(MakeDefinition(pos))
	require.True(t, ok)
	assert.Equal(t, 10, c.Len())

	e, err := b.NewEntity()
	require.NoError(t, err)
	assert.Equal(t, 11, c.Len())
	got, err := GetComponent[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, Position{}, got)
}

func TestBuilderUnregisteredType(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)

	b := NewBuilder[Position](w)
	_, err := b.NewEntity()
	require.IsType(t, TypeNotRegisteredError{}, err)
	_, err = b.NewEntities(3)
	require.IsType(t, TypeNotRegisteredError{}, err)
}

func TestBuilder4(t *testing.T) {
	schema := NewSchema()
	RegisterComponent[Position](schema)
	RegisterComponent[Velocity](schema)
	RegisterComponent[Apple](schema)
	RegisterComponent[Berry](schema)
	w := NewWorld(schema)

	b := NewBuilder4[Position, Velocity, Apple, Berry](w)
	e, err := b.NewEntityWith(Position{X: 1}, Velocity{DX: 2}, Apple{Bites: 3}, Berry{Seeds: 4})
	require.NoError(t, err)

	a, err := GetComponent[Apple](w, e)
	require.NoError(t, err)
	assert.Equal(t, int32(3), a.Bites)
	br, err := GetComponent[Berry](w, e)
	require.NoError(t, err)
	assert.Equal(t, int32(4), br.Seeds)
	checkWorldInvariants(t, w)
}
