package binsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/aosoa/lib/aosoa"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

// gridParticles places one particle at the center of each cell of an
// nx*nx*nx unit-cell grid, generated with the k index moving the slowest
// and the i index the fastest, which is the reverse of the order the
// binning should produce.
func gridParticles(nx int) *aosoa.AoSoA {
	s := schema.New(
		schema.Vector("x", schema.Float64, 3),
		schema.Vector("cell", schema.Int32, 3),
	)
	c := aosoa.New(s, nx*nx*nx)

	pos := aosoa.GetSlice[float64](c, 0)
	cell := aosoa.GetSlice[int32](c, 1)

	p := 0
	for k := 0; k < nx; k++ {
		for j := 0; j < nx; j++ {
			for i := 0; i < nx; i, p = i+1, p+1 {
				cell.SetAt(p, int32(i), 0)
				cell.SetAt(p, int32(j), 1)
				cell.SetAt(p, int32(k), 2)

				pos.SetAt(p, float64(i)+0.5, 0)
				pos.SetAt(p, float64(j)+0.5, 1)
				pos.SetAt(p, float64(k)+0.5, 2)
			}
		}
	}
	return c
}

func unitGrid(nx int) CartesianGrid3d {
	return CartesianGrid3d{
		Dx: 1, Dy: 1, Dz: 1,
		XMin: 0, YMin: 0, ZMin: 0,
		XMax: float64(nx), YMax: float64(nx), ZMax: float64(nx),
	}
}

func TestBinByCartesianGrid3d(t *testing.T) {
	nx := 10
	rt := parallel.New(4)
	c := gridParticles(nx)

	data := BinByCartesianGrid3d(rt, c, 0, false, unitGrid(nx))

	require.Equal(t, nx*nx*nx, data.TotalBins())
	for dim := 0; dim < 3; dim++ {
		require.Equal(t, nx, data.NumBin(dim))
	}

	pos := aosoa.GetSlice[float64](c, 0)
	cell := aosoa.GetSlice[int32](c, 1)

	// After binning the i cell index moves the slowest: the particle at
	// cardinal slot i*nx*nx + j*nx + k is the one from cell (i, j, k).
	p := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < nx; j++ {
			for k := 0; k < nx; k, p = k+1, p+1 {
				if !assert.Equal(t, p, data.CardinalBinIndex(i, j, k)) ||
					!assert.Equal(t, 1, data.BinSize(i, j, k)) ||
					!assert.Equal(t, p, data.BinOffset(i, j, k)) {
					return
				}

				ok := assert.Equal(t, int32(i), cell.At(p, 0)) &&
					assert.Equal(t, int32(j), cell.At(p, 1)) &&
					assert.Equal(t, int32(k), cell.At(p, 2))
				if !ok {
					return
				}

				ok = assert.Equal(t, float64(i)+0.5, pos.At(p, 0)) &&
					assert.Equal(t, float64(j)+0.5, pos.At(p, 1)) &&
					assert.Equal(t, float64(k)+0.5, pos.At(p, 2))
				if !ok {
					return
				}
			}
		}
	}
}

func TestBinByCartesianGrid3dDataOnly(t *testing.T) {
	nx := 4
	rt := parallel.New(4)
	c := gridParticles(nx)

	data := BinByCartesianGrid3d(rt, c, 0, true, unitGrid(nx))

	require.Equal(t, nx*nx*nx, data.TotalBins())
	require.Equal(t, nx*nx*nx, data.Data1d().Len())

	// Nothing moved: the generation order (k slowest, i fastest) is intact.
	cell := aosoa.GetSlice[int32](c, 1)
	p := 0
	for k := 0; k < nx; k++ {
		for j := 0; j < nx; j++ {
			for i := 0; i < nx; i, p = i+1, p+1 {
				ok := assert.Equal(t, int32(i), cell.At(p, 0)) &&
					assert.Equal(t, int32(j), cell.At(p, 1)) &&
					assert.Equal(t, int32(k), cell.At(p, 2))
				if !ok {
					return
				}
			}
		}
	}

	// The permutation still describes the binned order: the record bound
	// for cardinal slot i*nx*nx + j*nx + k was generated at
	// k*nx*nx + j*nx + i.
	for i := 0; i < nx; i++ {
		for j := 0; j < nx; j++ {
			for k := 0; k < nx; k++ {
				cardinal := data.CardinalBinIndex(i, j, k)
				orig := k*nx*nx + j*nx + i
				if !assert.Equal(t, orig, data.Permutation(cardinal)) {
					return
				}
			}
		}
	}
}

func TestBinByCartesianGrid3dFloat32Positions(t *testing.T) {
	nx := 3
	rt := parallel.Serial()

	s := schema.New(schema.Vector("x", schema.Float32, 3))
	c := aosoa.New(s, nx*nx*nx)
	pos := aosoa.GetSlice[float32](c, 0)

	p := 0
	for k := 0; k < nx; k++ {
		for j := 0; j < nx; j++ {
			for i := 0; i < nx; i, p = i+1, p+1 {
				pos.SetAt(p, float32(i)+0.5, 0)
				pos.SetAt(p, float32(j)+0.5, 1)
				pos.SetAt(p, float32(k)+0.5, 2)
			}
		}
	}

	data := BinByCartesianGrid3d(rt, c, 0, false, unitGrid(nx))

	require.Equal(t, nx*nx*nx, data.TotalBins())
	for b := 0; b < data.TotalBins(); b++ {
		if !assert.Equal(t, 1, data.Data1d().BinSize(b)) {
			return
		}
	}
}

func TestBinByCartesianGrid3dEmptyRange(t *testing.T) {
	nx := 4
	rt := parallel.Serial()
	c := gridParticles(nx)

	data := BinByCartesianGrid3dRange(rt, c, 0, false, unitGrid(nx), 7, 7)

	assert.Equal(t, nx*nx*nx, data.TotalBins())
	assert.Equal(t, 0, data.Data1d().Len())
	assert.Equal(t, 0, data.Data1d().NumBin())
}

func TestCartesianGridNumBin(t *testing.T) {
	g := CartesianGrid3d{
		Dx: 0.5, Dy: 1, Dz: 2,
		XMin: -1, YMin: 0, ZMin: 3,
		XMax: 1, YMax: 3.5, ZMax: 11,
	}

	assert.Equal(t, 4, g.NumBin(0))
	assert.Equal(t, 3, g.NumBin(1))
	assert.Equal(t, 4, g.NumBin(2))
}
