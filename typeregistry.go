package hakoniwa

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// maxTypeNameLen bounds registered names so they fit the u8 length prefix
// of the layout codec.
const maxTypeNameLen = 255

// TypeField describes one named field of a registered value type.
type TypeField struct {
	Name     string
	TypeHash uint64
}

// TypeLayout records the identity of a registered value type: its fully
// qualified name, its byte size, and its ordered fields.
type TypeLayout struct {
	Name   string
	Size   uint16
	Fields []TypeField
}

// Hash returns the stable identity hash of the layout's name.
func (l *TypeLayout) Hash() uint64 {
	return xxhash.Sum64String(l.Name)
}

func (l *TypeLayout) equal(other *TypeLayout) bool {
	if l.Name != other.Name || l.Size != other.Size || len(l.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range l.Fields {
		if other.Fields[i] != f {
			return false
		}
	}
	return true
}

// registry is the process-wide table of registered value types.
var registry = struct {
	sync.RWMutex
	byName map[string]*TypeLayout
	byHash map[uint64]*TypeLayout
}{
	byName: make(map[string]*TypeLayout),
	byHash: make(map[uint64]*TypeLayout),
}

// typeName returns the fully qualified name of t.
func typeName(t reflect.Type) string {
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}

func layoutOf(t reflect.Type, size uintptr) *TypeLayout {
	name := typeName(t)
	if len(name) > maxTypeNameLen {
		panic(fmt.Sprintf("type name too long: %q", name))
	}
	l := &TypeLayout{Name: name, Size: uint16(size)}
	if t.Kind() == reflect.Struct && t.NumField() > 0 {
		l.Fields = make([]TypeField, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			l.Fields = append(l.Fields, TypeField{
				Name:     f.Name,
				TypeHash: xxhash.Sum64String(f.Type.String()),
			})
		}
	}
	return l
}

// RegisterType records T in the process-wide registry and returns its
// layout. Registration is idempotent by name hash; re-registering a name
// with a different layout is a programmer error and panics.
func RegisterType[T any]() *TypeLayout {
	var zero T
	t := reflect.TypeOf(zero)
	l := layoutOf(t, unsafe.Sizeof(zero))

	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.byName[l.Name]; ok {
		if !existing.equal(l) {
			panic(fmt.Sprintf("type %q re-registered with a different layout", l.Name))
		}
		return existing
	}
	registry.byName[l.Name] = l
	registry.byHash[l.Hash()] = l
	return l
}

// IsRegistered reports whether T is present in the registry.
func IsRegistered[T any]() bool {
	var zero T
	name := typeName(reflect.TypeOf(zero))
	registry.RLock()
	defer registry.RUnlock()
	_, ok := registry.byName[name]
	return ok
}

// LayoutFor returns the layout registered under name.
func LayoutFor(name string) (*TypeLayout, bool) {
	registry.RLock()
	defer registry.RUnlock()
	l, ok := registry.byName[name]
	return l, ok
}

// LayoutForHash returns the layout whose name hashes to hash.
func LayoutForHash(hash uint64) (*TypeLayout, bool) {
	registry.RLock()
	defer registry.RUnlock()
	l, ok := registry.byHash[hash]
	return l, ok
}
