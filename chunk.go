package hakoniwa

// Chunk is the columnar store for all entities sharing one Definition: a
// dense entity-id column plus one dense byte column per component type.
// Tags and arrays participate in the Definition but occupy no column.
//
// The version counter is bumped on every structural mutation (add, remove,
// move in, move out); in-place component writes do not bump it. Iterators
// snapshot it to detect concurrent modification.
type Chunk struct {
	def      Definition
	entities []Entity
	columns  [][]byte
	compIDs  []uint8
	sizes    []int
	slots    [MaxTypes]int16 // component index -> column position; -1 if absent
	version  uint64
}

// newChunk allocates a chunk for def, with columns sized from the schema.
func newChunk(def Definition, schema *Schema, capacity int) *Chunk {
	compIDs := def.Components.Bits(nil)
	c := &Chunk{
		def:      def,
		entities: make([]Entity, 0, capacity),
		compIDs:  compIDs,
		columns:  make([][]byte, len(compIDs)),
		sizes:    make([]int, len(compIDs)),
	}
	for i := range c.slots {
		c.slots[i] = -1
	}
	for i, id := range compIDs {
		size := schema.ComponentSize(id)
		c.sizes[i] = size
		c.columns[i] = make([]byte, 0, capacity*size)
		c.slots[id] = int16(i)
	}
	return c
}

// Definition returns the chunk's immutable definition.
func (c *Chunk) Definition() Definition { return c.def }

// Len returns the number of entities stored.
func (c *Chunk) Len() int { return len(c.entities) }

// Version returns the structural mutation counter.
func (c *Chunk) Version() uint64 { return c.version }

// EntityAt returns the entity id stored at row.
func (c *Chunk) EntityAt(row int) Entity { return c.entities[row] }

// slotOf returns the column position of a component index, -1 if absent.
func (c *Chunk) slotOf(idx uint8) int {
	return int(c.slots[idx])
}

// addEntity appends e, zero-initializes its cells in every component
// column, and returns the new row. Columns grow geometrically.
func (c *Chunk) addEntity(e Entity) int {
	row := len(c.entities)
	c.entities = extendSlice(c.entities, 1)
	c.entities[row] = e
	for i := range c.columns {
		size := c.sizes[i]
		col := extendByteSlice(c.columns[i], size)
		clear(col[row*size:])
		c.columns[i] = col
	}
	c.version++
	return row
}

// removeAt deletes the row with the swap-and-pop rule and returns the
// entity that was swapped into row (0 when the last row was removed).
func (c *Chunk) removeAt(row int) Entity {
	lastRow := len(c.entities) - 1
	var moved Entity
	if row < lastRow {
		moved = c.entities[lastRow]
		c.entities[row] = moved
		for i := range c.columns {
			size := c.sizes[i]
			col := c.columns[i]
			copy(col[row*size:(row+1)*size], col[lastRow*size:(lastRow+1)*size])
		}
	}
	c.entities = c.entities[:lastRow]
	for i := range c.columns {
		c.columns[i] = c.columns[i][:lastRow*c.sizes[i]]
	}
	c.version++
	return moved
}

// moveTo migrates the entity at row into dst: component types present in
// both definitions are copied, types only in dst stay zeroed, types only
// in c are discarded. Returns the destination row and the entity swapped
// into row on the source side. Both versions are bumped.
func (c *Chunk) moveTo(row int, dst *Chunk) (newRow int, swapped Entity) {
	newRow = dst.addEntity(c.entities[row])
	for i, id := range c.compIDs {
		j := dst.slotOf(id)
		if j < 0 {
			continue
		}
		size := c.sizes[i]
		src := c.columns[i][row*size : (row+1)*size]
		copy(dst.columns[j][newRow*size:(newRow+1)*size], src)
	}
	swapped = c.removeAt(row)
	return newRow, swapped
}

// cell returns the raw bytes of one component at row. The slice aliases
// the column and is invalidated by the next structural mutation.
func (c *Chunk) cell(idx uint8, row int) []byte {
	i := c.slotOf(idx)
	size := c.sizes[i]
	return c.columns[i][row*size : (row+1)*size]
}

// setCell overwrites one component cell. In-place writes are not
// structural and do not bump the version.
func (c *Chunk) setCell(idx uint8, row int, data []byte) {
	copy(c.cell(idx, row), data)
}

// copyRow copies every component cell from row src to row dst.
func (c *Chunk) copyRow(dst, src int) {
	for i := range c.columns {
		size := c.sizes[i]
		col := c.columns[i]
		copy(col[dst*size:(dst+1)*size], col[src*size:(src+1)*size])
	}
}

// clearRows empties the chunk, retaining capacity.
func (c *Chunk) clearRows() {
	c.entities = c.entities[:0]
	for i := range c.columns {
		c.columns[i] = c.columns[i][:0]
	}
	c.version++
}
