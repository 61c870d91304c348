package aosoa

/* slice.go contains the per-field views used to read and write container
data. */

import (
	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

// Slice is a non-owning view over one field of one container. It stays
// bound to the storage the container had when it was acquired: if the
// container is resized, the Slice must be re-acquired. A Slice must not
// outlive its container.
//
// Record indices and sub-indices are caller-checked. Out-of-range access is
// a precondition failure, not a recoverable error.
type Slice[T schema.Element] struct {
	data      []T
	n         int
	rank      int
	tensorLen int
	extents   [schema.MaxRank]int
}

// GetSlice returns a view over the given field of c. The element type T
// must match the field's declared kind; a mismatch or a bad field index is
// a programming error and aborts.
func GetSlice[T schema.Element](c *AoSoA, field int) Slice[T] {
	if field < 0 || field >= len(c.cols) {
		lib.InternalErrorf("GetSlice called with field index %d, but the schema has %d fields.", field, len(c.cols))
	}

	cc, ok := c.cols[field].(*col[T])
	if !ok {
		f := c.schema.Field(field)
		lib.InternalErrorf("GetSlice[%s] called on field '%s', which stores %s elements.", schema.KindOf[T]().String(), f.Name, f.Kind.String())
	}

	s := Slice[T]{data: cc.data, n: c.n, rank: cc.field.Rank(),
		tensorLen: cc.tensorLen}
	copy(s.extents[:], cc.field.Extents)
	return s
}

// GetSliceByName is GetSlice keyed by field name instead of field index.
func GetSliceByName[T schema.Element](c *AoSoA, name string) Slice[T] {
	i, ok := c.schema.Index(name)
	if !ok {
		lib.InternalErrorf("GetSliceByName called with unknown field name, '%s'.", name)
	}
	return GetSlice[T](c, i)
}

// Len returns the number of records viewed by the Slice.
func (s Slice[T]) Len() int { return s.n }

// Rank returns the number of sub-indices the field requires.
func (s Slice[T]) Rank() int { return s.rank }

// Extent returns the size of tensor dimension d.
func (s Slice[T]) Extent(d int) int { return s.extents[d] }

func (s Slice[T]) index(p, t int) int {
	blk, lane := p/BlockSize, p%BlockSize
	return (blk*s.tensorLen+t)*BlockSize + lane
}

// Get returns the value of record p of a rank-0 field.
func (s Slice[T]) Get(p int) T {
	return s.data[s.index(p, 0)]
}

// Set assigns the value of record p of a rank-0 field.
func (s Slice[T]) Set(p int, v T) {
	s.data[s.index(p, 0)] = v
}

// At returns the element of record p at the given sub-indices. The number
// of sub-indices must equal the field's rank.
func (s Slice[T]) At(p int, sub ...int) T {
	return s.data[s.index(p, s.tensorOffset(sub))]
}

// SetAt assigns the element of record p at the given sub-indices. The
// number of sub-indices must equal the field's rank.
func (s Slice[T]) SetAt(p int, v T, sub ...int) {
	s.data[s.index(p, s.tensorOffset(sub))] = v
}

// Flat returns the element of record p at linearized tensor offset t,
// where t indexes the field's extents row-major. For a rank-0 field the
// only valid offset is 0.
func (s Slice[T]) Flat(p, t int) T {
	return s.data[s.index(p, t)]
}

// SetFlat assigns the element of record p at linearized tensor offset t.
func (s Slice[T]) SetFlat(p int, v T, t int) {
	s.data[s.index(p, t)] = v
}

// tensorOffset flattens sub-indices row-major over the field's extents.
func (s Slice[T]) tensorOffset(sub []int) int {
	if len(sub) != s.rank {
		lib.InternalErrorf("%d sub-indices passed to a slice over a rank-%d field.", len(sub), s.rank)
	}
	t := 0
	for d := 0; d < s.rank; d++ {
		t = t*s.extents[d] + sub[d]
	}
	return t
}
