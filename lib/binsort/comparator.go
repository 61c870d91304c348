package binsort

/* comparator.go contains the key-to-bin mappings used by the engine: the
default equal-width 1D bucketing and the 3D Cartesian grid geometry. */

import (
	"math"

	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

// Comparator maps key values to bin indices. NumBin reports the number of
// bins the mapping targets; BinIndex must return values in [0, NumBin()).
type Comparator[K schema.Element] interface {
	NumBin() int
	BinIndex(k K) int
}

// BinOp1D is the default Comparator: equal-width buckets spanning the key
// range [min, max]. The requested bin count divides the key span and a key
// equal to the maximum lands in a final extra bucket, so NumBin() reports
// nbin+1.
type BinOp1D[K schema.Element] struct {
	nbin  int
	min   K
	scale float64
}

// NewBinOp1D creates a BinOp1D with nbin width divisions over [min, max].
// When min == max every key maps to bin 0 and the bucket count is
// unchanged, so an all-equal key range is safe.
func NewBinOp1D[K schema.Element](nbin int, min, max K) BinOp1D[K] {
	if nbin <= 0 {
		lib.InternalErrorf("NewBinOp1D called with non-positive bin count, %d.", nbin)
	}

	scale := 0.0
	if span := float64(max) - float64(min); span > 0 {
		scale = float64(nbin) / span
	}
	return BinOp1D[K]{nbin, min, scale}
}

// NumBin returns the number of buckets, nbin+1.
func (op BinOp1D[K]) NumBin() int { return op.nbin + 1 }

// BinIndex returns the bucket of key k, clamped to the bucket range.
func (op BinOp1D[K]) BinIndex(k K) int {
	b := int(op.scale * (float64(k) - float64(op.min)))
	if b < 0 {
		b = 0
	} else if b > op.nbin {
		b = op.nbin
	}
	return b
}

// CartesianGrid3d gives the geometry of a regular 3D binning grid: a cell
// width and a lower and upper bound along each axis.
type CartesianGrid3d struct {
	Dx, Dy, Dz       float64
	XMin, YMin, ZMin float64
	XMax, YMax, ZMax float64
}

// NumBin returns the number of cells along dimension dim,
// floor((max-min)/d).
func (g CartesianGrid3d) NumBin(dim int) int {
	switch dim {
	case 0:
		return int(math.Floor((g.XMax - g.XMin) / g.Dx))
	case 1:
		return int(math.Floor((g.YMax - g.YMin) / g.Dy))
	case 2:
		return int(math.Floor((g.ZMax - g.ZMin) / g.Dz))
	}
	lib.InternalErrorf("CartesianGrid3d.NumBin called with dimension %d.", dim)
	panic("unreachable")
}

func (g CartesianGrid3d) bins() [3]int {
	return [3]int{g.NumBin(0), g.NumBin(1), g.NumBin(2)}
}

// cellIndex returns the cell of coordinate x along an axis with the given
// origin, cell width, and cell count, clamped to the axis range.
func cellIndex(x, min, d float64, n int) int {
	i := int(math.Floor((x - min) / d))
	if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	return i
}
