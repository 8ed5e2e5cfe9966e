package hakoniwa

import (
	"errors"
	"fmt"
)

var (
	// ErrChunkModified is reported by an iterator when the chunk it is
	// walking was structurally mutated since the iterator entered it.
	ErrChunkModified = errors.New("chunk modified while iterating")

	// ErrInvalidFormat is returned when a stream's magic number doesn't match.
	ErrInvalidFormat = errors.New("invalid stream format")

	// ErrVersionMismatch is returned when a stream's format version is unsupported.
	ErrVersionMismatch = errors.New("unsupported format version")
)

// EntityNotFoundError reports an operation on an id that is not live.
type EntityNotFoundError struct {
	Entity Entity
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %d does not exist", e.Entity)
}

// ComponentPresentError reports adding a component the entity already has.
type ComponentPresentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e ComponentPresentError) Error() string {
	return fmt.Sprintf("component %d already present on entity %d", e.TypeIndex, e.Entity)
}

// ComponentAbsentError reports accessing a component the entity lacks.
type ComponentAbsentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e ComponentAbsentError) Error() string {
	return fmt.Sprintf("component %d absent on entity %d", e.TypeIndex, e.Entity)
}

// TagPresentError reports adding a tag the entity already carries.
type TagPresentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e TagPresentError) Error() string {
	return fmt.Sprintf("tag %d already present on entity %d", e.TypeIndex, e.Entity)
}

// TagAbsentError reports removing a tag the entity does not carry.
type TagAbsentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e TagAbsentError) Error() string {
	return fmt.Sprintf("tag %d absent on entity %d", e.TypeIndex, e.Entity)
}

// ArrayPresentError reports creating an array the entity already owns.
type ArrayPresentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e ArrayPresentError) Error() string {
	return fmt.Sprintf("array %d already present on entity %d", e.TypeIndex, e.Entity)
}

// ArrayAbsentError reports accessing an array the entity does not own.
type ArrayAbsentError struct {
	Entity    Entity
	TypeIndex uint8
}

func (e ArrayAbsentError) Error() string {
	return fmt.Sprintf("array %d absent on entity %d", e.TypeIndex, e.Entity)
}

// ArrayBoundsError reports an element index outside an array's bounds.
type ArrayBoundsError struct {
	Entity    Entity
	TypeIndex uint8
	Index     int
}

func (e ArrayBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds for array %d on entity %d", e.Index, e.TypeIndex, e.Entity)
}

// ReferenceRangeError reports a handle outside the owner's reference range.
type ReferenceRangeError struct {
	Entity Entity
	Handle RefHandle
}

func (e ReferenceRangeError) Error() string {
	return fmt.Sprintf("reference handle %d out of range for entity %d", e.Handle, e.Entity)
}

// ParentCycleError reports a SetParent call that would create a cycle.
type ParentCycleError struct {
	Child  Entity
	Parent Entity
}

func (e ParentCycleError) Error() string {
	return fmt.Sprintf("setting parent %d on entity %d would create a cycle", e.Parent, e.Child)
}

// TypeNotRegisteredError reports a type missing from a schema or registry.
type TypeNotRegisteredError struct {
	Name string
	Hash uint64
}

func (e TypeNotRegisteredError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("type %q not registered", e.Name)
	}
	return fmt.Sprintf("type with hash %#x not registered", e.Hash)
}

// DefinitionCapacityError reports exhaustion of a kind's 256-wide index
// space. Registration panics with this value; it is fatal by design.
type DefinitionCapacityError struct {
	Kind TypeKind
}

func (e DefinitionCapacityError) Error() string {
	return fmt.Sprintf("index space exhausted for kind %d: at most %d types", e.Kind, MaxTypes)
}
