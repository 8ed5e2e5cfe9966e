package hakoniwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleEvent struct {
	e       Entity
	created bool
}

type dataEvent struct {
	e     Entity
	kind  DataKind
	idx   uint8
	added bool
}

func TestEntityLifecycleEvents(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)

	var events []lifecycleEvent
	w.ListenEntityLifecycle(func(e Entity, created bool) {
		events = append(events, lifecycleEvent{e: e, created: created})
	})

	a := w.CreateEntity()
	b := w.CreateEntity()
	require.NoError(t, w.DestroyEntity(a))

	assert.Equal(t, []lifecycleEvent{
		{e: a, created: true},
		{e: b, created: true},
		{e: a, created: false},
	}, events)
}

func TestLifecycleEventsOnDestroyRecursion(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)

	p := w.CreateEntity()
	c := w.CreateEntity()
	require.NoError(t, w.SetParent(c, p))

	var destroyed []Entity
	w.ListenEntityLifecycle(func(e Entity, created bool) {
		if !created {
			destroyed = append(destroyed, e)
		}
	})
	require.NoError(t, w.DestroyEntity(p))
	assert.ElementsMatch(t, []Entity{p, c}, destroyed)
}

func TestDataChangeEvents(t *testing.T) {
	schema := NewSchema()
	apple := RegisterComponent[Apple](schema)
	isThing := RegisterTag[IsThing](schema)
	ints := RegisterArrayElement[int32](schema)
	w := NewWorld(schema)
	e := w.CreateEntity()

	var events []dataEvent
	w.ListenDataChanges(func(e Entity, kind DataKind, idx uint8, added bool) {
		events = append(events, dataEvent{e: e, kind: kind, idx: idx, added: added})
	})

	require.NoError(t, AddComponentValue(w, e, Apple{Bites: 1}))
	require.NoError(t, AddTag[IsThing](w, e))
	_, err := CreateArray[int32](w, e, 2)
	require.NoError(t, err)
	require.NoError(t, RemoveComponent[Apple](w, e))
	require.NoError(t, DestroyArray[int32](w, e))
	require.NoError(t, RemoveTag[IsThing](w, e))

	assert.Equal(t, []dataEvent{
		{e: e, kind: DataComponent, idx: apple.Index(), added: true},
		{e: e, kind: DataTag, idx: isThing.Index(), added: true},
		{e: e, kind: DataArray, idx: ints.Index(), added: true},
		{e: e, kind: DataComponent, idx: apple.Index(), added: false},
		{e: e, kind: DataArray, idx: ints.Index(), added: false},
		{e: e, kind: DataTag, idx: isThing.Index(), added: false},
	}, events)
}

func TestSetEnabledEmitsDisabledTagEvents(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)
	e := w.CreateEntity()

	var events []dataEvent
	w.ListenDataChanges(func(e Entity, kind DataKind, idx uint8, added bool) {
		events = append(events, dataEvent{e: e, kind: kind, idx: idx, added: added})
	})

	require.NoError(t, w.SetEnabled(e, false))
	require.NoError(t, w.SetEnabled(e, false)) // no-op, no event
	require.NoError(t, w.SetEnabled(e, true))

	assert.Equal(t, []dataEvent{
		{e: e, kind: DataTag, idx: DisabledTagIndex, added: true},
		{e: e, kind: DataTag, idx: DisabledTagIndex, added: false},
	}, events)
}

func TestStopListening(t *testing.T) {
	schema := NewSchema()
	w := NewWorld(schema)

	var count int
	id := w.ListenEntityLifecycle(func(Entity, bool) { count++ })
	w.CreateEntity()
	w.StopListening(id)
	w.CreateEntity()
	assert.Equal(t, 1, count)

	var dataCount int
	id = w.ListenDataChanges(func(Entity, DataKind, uint8, bool) { dataCount++ })
	w.StopListening(id)
	require.NoError(t, w.SetEnabled(Entity(1), false))
	assert.Equal(t, 0, dataCount)
}
