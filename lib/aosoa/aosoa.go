/*package aosoa implements a blocked array-of-structs-of-arrays container for
large collections of multi-field particle records. Records are stored in
fixed-capacity blocks; within a block each field's values are contiguous
(structure-of-arrays), and the container is an array of such blocks. This
keeps per-field access unit-strided within a block while keeping all of a
record's fields close together in memory.

Every field of record i is identified by the single index i. Fields are read
and written through Slice views acquired with GetSlice, and the whole
container can be reordered with Permute, which is the backbone of the
lib/binsort engine.
*/
package aosoa

import (
	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

// BlockSize is the number of records stored per block. It is sized so a
// block of a four-byte scalar field fills two cache lines and vectorizes
// cleanly.
const BlockSize = 32

// AoSoA owns the storage for an ordered sequence of records whose fields
// are given by a schema fixed at construction.
type AoSoA struct {
	schema  *schema.Schema
	n       int
	nBlocks int
	cols    []column
}

// column is the type-erased storage for one field. Each implementation
// stores nBlocks*BlockSize*TensorLen() elements in block-major order.
type column interface {
	resize(nBlocks int)
	permute(rt *parallel.Runtime, perm []int, begin, end int)
}

// New creates a container with storage for n records of the given schema.
// n may be zero. Field values are zero-initialized.
func New(s *schema.Schema, n int) *AoSoA {
	if n < 0 {
		lib.InternalErrorf("New called with negative size, %d.", n)
	}

	nb := numBlocks(n)
	cols := make([]column, s.Len())
	for i := range cols {
		cols[i] = newColumn(s.Field(i), nb)
	}

	return &AoSoA{s, n, nb, cols}
}

func numBlocks(n int) int {
	return (n + BlockSize - 1) / BlockSize
}

// Size returns the current number of records.
func (c *AoSoA) Size() int { return c.n }

// Schema returns the container's field schema.
func (c *AoSoA) Schema() *schema.Schema { return c.schema }

// NumBlocks returns the number of allocated blocks.
func (c *AoSoA) NumBlocks() int { return c.nBlocks }

// Capacity returns the total number of records the allocated blocks can
// hold. Size() <= Capacity() always holds.
func (c *AoSoA) Capacity() int { return c.nBlocks * BlockSize }

// Resize changes the record count to n, preserving existing record order up
// to the new size. Resizing may reallocate the underlying storage, so any
// Slice acquired before the call must be re-acquired afterwards.
func (c *AoSoA) Resize(n int) {
	if n < 0 {
		lib.InternalErrorf("Resize called with negative size, %d.", n)
	}

	nb := numBlocks(n)
	if nb != c.nBlocks {
		for _, col := range c.cols {
			col.resize(nb)
		}
		c.nBlocks = nb
	}
	c.n = n
}

// Permute reorders the records in [begin, end) of every field according to
// perm, a mapping from new position to original position: after the call,
// record begin+i holds the values that record perm[i] held before it.
// len(perm) must equal end-begin and perm must be a bijection on the
// original indices in [begin, end); records outside the range do not move.
// The call returns once every field has been reordered.
func (c *AoSoA) Permute(rt *parallel.Runtime, perm []int, begin, end int) {
	if begin < 0 || end > c.n || begin > end {
		lib.InternalErrorf("Permute range [%d, %d) is invalid for a container with %d records.", begin, end, c.n)
	}
	if len(perm) != end-begin {
		lib.InternalErrorf("Permute called on the range [%d, %d), but len(perm) = %d.", begin, end, len(perm))
	}

	for _, col := range c.cols {
		col.permute(rt, perm, begin, end)
	}
}

// newColumn creates the typed storage for one field.
func newColumn(f schema.Field, nBlocks int) column {
	switch f.Kind {
	case schema.Int32:
		return newCol[int32](f, nBlocks)
	case schema.Int64:
		return newCol[int64](f, nBlocks)
	case schema.Uint32:
		return newCol[uint32](f, nBlocks)
	case schema.Uint64:
		return newCol[uint64](f, nBlocks)
	case schema.Float32:
		return newCol[float32](f, nBlocks)
	case schema.Float64:
		return newCol[float64](f, nBlocks)
	}
	lib.InternalErrorf("Field '%s' has invalid Kind, %d.",
		f.Name, int64(f.Kind))
	panic("unreachable")
}

// col is the typed storage for one field. Element (record p, tensor offset
// t) lives at (block(p)*tensorLen + t)*BlockSize + lane(p), so each tensor
// component of a block's records occupies a contiguous run of BlockSize
// elements.
type col[T schema.Element] struct {
	field     schema.Field
	tensorLen int
	data      []T
}

func newCol[T schema.Element](f schema.Field, nBlocks int) *col[T] {
	tl := f.TensorLen()
	return &col[T]{f, tl, make([]T, nBlocks*BlockSize*tl)}
}

func (c *col[T]) index(p, t int) int {
	blk, lane := p/BlockSize, p%BlockSize
	return (blk*c.tensorLen+t)*BlockSize + lane
}

func (c *col[T]) resize(nBlocks int) {
	// The block-major layout is identical for the shared block prefix, so a
	// flat copy preserves every surviving record.
	data := make([]T, nBlocks*BlockSize*c.tensorLen)
	copy(data, c.data)
	c.data = data
}

func (c *col[T]) permute(rt *parallel.Runtime, perm []int, begin, end int) {
	tl := c.tensorLen
	scratch := make([]T, len(perm)*tl)

	// Gather in the new order, then scatter back in place. Both passes are
	// complete before the next statement runs.
	rt.For(0, len(perm), func(i int) {
		orig := perm[i]
		for t := 0; t < tl; t++ {
			scratch[i*tl+t] = c.data[c.index(orig, t)]
		}
	})
	rt.For(0, len(perm), func(i int) {
		p := begin + i
		for t := 0; t < tl; t++ {
			c.data[c.index(p, t)] = scratch[i*tl+t]
		}
	})
}
