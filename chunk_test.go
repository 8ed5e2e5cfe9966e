package hakoniwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkTestSchema(t *testing.T) (*Schema, ComponentType[Apple], ComponentType[Berry]) {
	t.Helper()
	s := NewSchema()
	return s, RegisterComponent[Apple](s), RegisterComponent[Berry](s)
}

func TestChunkAddRemove(t *testing.T) {
	s, apple, _ := chunkTestSchema(t)
	c := newChunk(MakeDefinition(apple), s, 4)

	r0 := c.addEntity(1)
	r1 := c.addEntity(2)
	r2 := c.addEntity(3)
	require.Equal(t, []int{0, 1, 2}, []int{r0, r1, r2})
	require.Equal(t, 3, c.Len())

	c.setCell(apple.Index(), r1, cellBytes(&Apple{Bites: 9}))

	// Removing the first row swaps the last one in.
	moved := c.removeAt(r0)
	assert.Equal(t, Entity(3), moved)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, Entity(3), c.EntityAt(0))
	assert.Equal(t, Entity(2), c.EntityAt(1))

	// Removing the last row moves nothing.
	moved = c.removeAt(1)
	assert.Equal(t, Entity(0), moved)
	assert.Equal(t, 1, c.Len())
}

func TestChunkZeroInitializesCells(t *testing.T) {
	s, apple, _ := chunkTestSchema(t)
	c := newChunk(MakeDefinition(apple), s, 2)

	row := c.addEntity(1)
	c.setCell(apple.Index(), row, cellBytes(&Apple{Bites: 42}))
	c.removeAt(row)

	// Re-adding reuses column capacity; the cell must still read zero.
	row = c.addEntity(2)
	assert.Equal(t, []byte{0, 0, 0, 0}, c.cell(apple.Index(), row))
}

func TestChunkMove(t *testing.T) {
	s, apple, berry := chunkTestSchema(t)
	src := newChunk(MakeDefinition(apple), s, 4)
	dst := newChunk(MakeDefinition(apple, berry), s, 4)

	row := src.addEntity(1)
	src.setCell(apple.Index(), row, cellBytes(&Apple{Bites: 7}))

	newRow, swapped := src.moveTo(row, dst)
	assert.Equal(t, Entity(0), swapped)
	assert.Equal(t, 0, src.Len())
	assert.Equal(t, 1, dst.Len())

	// The shared column is copied, the new column is zeroed.
	assert.Equal(t, cellBytes(&Apple{Bites: 7}), dst.cell(apple.Index(), newRow))
	assert.Equal(t, []byte{0, 0, 0, 0}, dst.cell(berry.Index(), newRow))
}

func TestChunkVersionBumps(t *testing.T) {
	s, apple, berry := chunkTestSchema(t)
	c := newChunk(MakeDefinition(apple), s, 4)
	d := newChunk(MakeDefinition(apple, berry), s, 4)

	v := c.Version()
	row := c.addEntity(1)
	require.Greater(t, c.Version(), v)

	// In-place writes are not structural.
	v = c.Version()
	c.setCell(apple.Index(), row, cellBytes(&Apple{Bites: 1}))
	require.Equal(t, v, c.Version())

	vd := d.Version()
	c.moveTo(row, d)
	assert.Greater(t, c.Version(), v, "move bumps the source")
	assert.Greater(t, d.Version(), vd, "move bumps the destination")
}

func TestChunkGrowth(t *testing.T) {
	s, apple, _ := chunkTestSchema(t)
	c := newChunk(MakeDefinition(apple), s, 1)

	for i := 1; i <= 100; i++ {
		row := c.addEntity(Entity(i))
		c.setCell(apple.Index(), row, cellBytes(&Apple{Bites: int32(i)}))
	}
	require.Equal(t, 100, c.Len())
	for row := 0; row < 100; row++ {
		var a Apple
		copy(cellBytes(&a), c.cell(apple.Index(), row))
		assert.Equal(t, int32(c.EntityAt(row)), a.Bites)
	}
}
