/*package schema describes the fields stored for every record in an aosoa
container. A schema is an ordered, immutable list of field descriptors. Each
descriptor gives the field a name, an element kind, and a fixed shape of rank
0 to 4, so a field can be a scalar (e.g. 'id'), a vector (e.g. 'x'), or a
small tensor (e.g. a deformation matrix). The shape is fixed when the schema
is created: fields cannot be added or removed afterwards.
*/
package schema

import (
	"fmt"

	"github.com/phil-mansfield/aosoa/lib"
)

// MaxRank is the largest number of tensor dimensions a field may have.
const MaxRank = 4

// Kind is a flag representing a field's element type.
type Kind int64

const (
	Int32 Kind = iota
	Int64
	Uint32
	Uint64
	Float32
	Float64
	numKinds
)

// Element is the set of Go types that can be stored in a field.
type Element interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Kind(%d)", int64(k))
}

// Valid returns true if k is one of the storable element kinds. Useful for
// checking kind values that came from outside the program, e.g. a file.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// Size returns the number of bytes used by one element of the Kind.
func (k Kind) Size() int {
	switch k {
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	lib.InternalErrorf("Size() called on invalid Kind, %d.", int64(k))
	panic("unreachable")
}

// KindOf returns the Kind corresponding to the element type T.
func KindOf[T Element]() Kind {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32
	case int64:
		return Int64
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	lib.InternalErrorf("KindOf called on a named type, %T: only the six base element types are storable.", zero)
	panic("unreachable")
}

// Field describes one named, typed, fixed-shape attribute present on every
// record. Extents holds the size of each tensor dimension; a scalar field
// has no extents.
type Field struct {
	Name    string
	Kind    Kind
	Extents []int
}

// Scalar returns a rank-0 field descriptor.
func Scalar(name string, kind Kind) Field {
	return Field{name, kind, nil}
}

// Vector returns a rank-1 field descriptor with d components.
func Vector(name string, kind Kind, d int) Field {
	return Field{name, kind, []int{d}}
}

// Tensor returns a field descriptor with the given tensor extents.
func Tensor(name string, kind Kind, extents ...int) Field {
	return Field{name, kind, extents}
}

// Rank returns the number of tensor dimensions of the field.
func (f Field) Rank() int { return len(f.Extents) }

// TensorLen returns the number of elements each record stores for the field,
// i.e. the product of the extents. A scalar field has TensorLen() == 1.
func (f Field) TensorLen() int {
	n := 1
	for _, e := range f.Extents {
		n *= e
	}
	return n
}

// Schema is an ordered, immutable list of field descriptors.
type Schema struct {
	fields []Field
	byName map[string]int
}

// New creates a Schema from the given field descriptors. Descriptors with
// repeated or empty names, ranks above MaxRank, non-positive extents, or
// invalid kinds are programming errors and abort.
func New(fields ...Field) *Schema {
	byName := map[string]int{}
	for i, f := range fields {
		if f.Name == "" {
			lib.InternalErrorf("Field %d has an empty name.", i)
		}
		if _, ok := byName[f.Name]; ok {
			lib.InternalErrorf("Field name '%s' is used more than once.", f.Name)
		}
		if !f.Kind.Valid() {
			lib.InternalErrorf("Field '%s' has invalid Kind, %d.",
				f.Name, int64(f.Kind))
		}
		if f.Rank() > MaxRank {
			lib.InternalErrorf("Field '%s' has rank %d, but the maximum is %d.",
				f.Name, f.Rank(), MaxRank)
		}
		for d, e := range f.Extents {
			if e < 1 {
				lib.InternalErrorf("Field '%s' has extent %d in dimension %d.",
					f.Name, e, d)
			}
		}
		byName[f.Name] = i
	}

	out := make([]Field, len(fields))
	copy(out, fields)
	return &Schema{out, byName}
}

// Len returns the number of fields in the schema.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the descriptor of the i-th field.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Index returns the position of the field with the given name, with ok set
// to false if no such field exists.
func (s *Schema) Index(name string) (i int, ok bool) {
	i, ok = s.byName[name]
	return i, ok
}

// Fields returns a copy of the schema's descriptor list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}
