package hakoniwa

// Definition describes an archetype: the component, array-element, and tag
// types its entities carry. It is the key of the world's chunk table and is
// comparable, so equality is over the triple regardless of the order bits
// were set.
type Definition struct {
	Components BitMask
	Arrays     BitMask
	Tags       BitMask
}

// Hash combines the three mask hashes into one.
func (d Definition) Hash() uint64 {
	const prime64 = 1099511628211
	h := d.Components.Hash()
	h = h*prime64 ^ d.Arrays.Hash()
	h = h*prime64 ^ d.Tags.Hash()
	return h
}

// ContainsComponent reports whether the component bit idx is set.
func (d Definition) ContainsComponent(idx uint8) bool { return d.Components.Has(idx) }

// ContainsArray reports whether the array bit idx is set.
func (d Definition) ContainsArray(idx uint8) bool { return d.Arrays.Has(idx) }

// ContainsTag reports whether the tag bit idx is set.
func (d Definition) ContainsTag(idx uint8) bool { return d.Tags.Has(idx) }

// WithComponent returns d with the component bit idx set.
func (d Definition) WithComponent(idx uint8) Definition {
	d.Components.Set(idx)
	return d
}

// WithoutComponent returns d with the component bit idx cleared.
func (d Definition) WithoutComponent(idx uint8) Definition {
	d.Components.Unset(idx)
	return d
}

// WithArray returns d with the array bit idx set.
func (d Definition) WithArray(idx uint8) Definition {
	d.Arrays.Set(idx)
	return d
}

// WithoutArray returns d with the array bit idx cleared.
func (d Definition) WithoutArray(idx uint8) Definition {
	d.Arrays.Unset(idx)
	return d
}

// WithTag returns d with the tag bit idx set.
func (d Definition) WithTag(idx uint8) Definition {
	d.Tags.Set(idx)
	return d
}

// WithoutTag returns d with the tag bit idx cleared.
func (d Definition) WithoutTag(idx uint8) Definition {
	d.Tags.Unset(idx)
	return d
}

// DefinitionItem is implemented by the typed handles so a Definition can be
// assembled from any mix of component, array, and tag types.
type DefinitionItem interface {
	applyTo(Definition) Definition
}

// MakeDefinition builds a Definition from typed handles. The order of items
// does not affect the result.
func MakeDefinition(items ...DefinitionItem) Definition {
	var d Definition
	for _, it := range items {
		d = it.applyTo(d)
	}
	return d
}

// ComponentType is the typed handle for a registered component type.
type ComponentType[T any] struct {
	index uint8
	size  int
}

// Index returns the schema index of the component type.
func (c ComponentType[T]) Index() uint8 { return c.index }

// Size returns the component's byte size.
func (c ComponentType[T]) Size() int { return c.size }

// Mask returns a BitMask with only this component's bit set.
func (c ComponentType[T]) Mask() BitMask {
	var m BitMask
	m.Set(c.index)
	return m
}

func (c ComponentType[T]) applyTo(d Definition) Definition { return d.WithComponent(c.index) }

// ArrayType is the typed handle for a registered array-element type.
type ArrayType[T any] struct {
	index uint8
	size  int
}

// Index returns the schema index of the array-element type.
func (a ArrayType[T]) Index() uint8 { return a.index }

// Size returns the element byte size.
func (a ArrayType[T]) Size() int { return a.size }

// Mask returns a BitMask with only this array type's bit set.
func (a ArrayType[T]) Mask() BitMask {
	var m BitMask
	m.Set(a.index)
	return m
}

func (a ArrayType[T]) applyTo(d Definition) Definition { return d.WithArray(a.index) }

// TagType is the typed handle for a registered tag type.
type TagType[T any] struct {
	index uint8
}

// Index returns the schema index of the tag type.
func (t TagType[T]) Index() uint8 { return t.index }

// Mask returns a BitMask with only this tag's bit set.
func (t TagType[T]) Mask() BitMask {
	var m BitMask
	m.Set(t.index)
	return m
}

func (t TagType[T]) applyTo(d Definition) Definition { return d.WithTag(t.index) }
