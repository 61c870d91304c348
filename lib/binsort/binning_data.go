package binsort

/* binning_data.go contains the result types returned by the binning and
sorting functions. */

// BinningData describes how a sort or bin operation partitioned a record
// range into contiguous groups, along with the permutation that produced
// the new ordering. It is immutable after creation.
//
// Offsets are relative to the start of the operated-on range and are the
// exclusive prefix sum of the bin sizes. Permutation maps a new position
// (again relative to the range start) to the absolute original record
// index. For full-range operations both conventions reduce to absolute
// indexing.
type BinningData struct {
	counts  []int
	offsets []int
	perm    []int
}

// NumBin returns the number of bins.
func (b BinningData) NumBin() int { return len(b.counts) }

// BinSize returns the number of records in the given bin.
func (b BinningData) BinSize(bin int) int { return b.counts[bin] }

// BinOffset returns the position within the binned ordering at which the
// given bin starts.
func (b BinningData) BinOffset(bin int) int { return b.offsets[bin] }

// Permutation returns the original index of the record now at position i of
// the binned ordering.
func (b BinningData) Permutation(i int) int { return b.perm[i] }

// Len returns the length of the permutation, i.e. the number of records the
// operation covered.
func (b BinningData) Len() int { return len(b.perm) }

// CartesianGrid3dBinningData wraps a BinningData whose bins form a regular
// 3D Cartesian grid. Per-bin queries take the (i, j, k) cell index and
// delegate to the flattened 1D form.
type CartesianGrid3dBinningData struct {
	data BinningData
	nbin [3]int
}

// TotalBins returns the total number of grid bins, nx*ny*nz.
func (g CartesianGrid3dBinningData) TotalBins() int {
	return g.nbin[0] * g.nbin[1] * g.nbin[2]
}

// NumBin returns the number of bins along dimension dim.
func (g CartesianGrid3dBinningData) NumBin(dim int) int { return g.nbin[dim] }

// CardinalBinIndex returns the linear bin index of cell (i, j, k). The i
// index moves the slowest and the k index moves the fastest.
func (g CartesianGrid3dBinningData) CardinalBinIndex(i, j, k int) int {
	return i*g.nbin[1]*g.nbin[2] + j*g.nbin[2] + k
}

// BinSize returns the number of records in cell (i, j, k).
func (g CartesianGrid3dBinningData) BinSize(i, j, k int) int {
	return g.data.BinSize(g.CardinalBinIndex(i, j, k))
}

// BinOffset returns the position within the binned ordering at which cell
// (i, j, k) starts.
func (g CartesianGrid3dBinningData) BinOffset(i, j, k int) int {
	return g.data.BinOffset(g.CardinalBinIndex(i, j, k))
}

// Permutation returns the original index of the record now at position i of
// the binned ordering.
func (g CartesianGrid3dBinningData) Permutation(i int) int {
	return g.data.Permutation(i)
}

// Data1d returns the flattened 1D binning data.
func (g CartesianGrid3dBinningData) Data1d() BinningData { return g.data }
