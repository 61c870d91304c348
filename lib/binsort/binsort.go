/*package binsort reorders and groups the records of an aosoa container by a
derived key. Keys can be supplied directly, copied out of a scalar field, or
derived from a 3-component position field and a regular Cartesian grid. Every
operation computes a permutation with a deterministic counting sort, applies
it to every field of the container (unless only the binning data was asked
for), and returns a BinningData describing the resulting contiguous groups.

All operations are blocking: they dispatch their internal loops over the
supplied parallel.Runtime and return only after the final field reorder has
completed. A container must not be operated on by more than one call at a
time.
*/
package binsort

import (
	"sort"

	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/aosoa"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

// SortByKey fully reorders every field of c by the given per-record keys.
// The bin count is derived automatically from the range length and ties are
// resolved with an in-bin ordering pass, so the result is a total order on
// the keys.
func SortByKey[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K,
) {
	SortByKeyRange(rt, c, keys, 0, c.Size())
}

// SortByKeyRange is SortByKey restricted to the records in [begin, end).
// Records outside the range do not move.
func SortByKeyRange[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, begin, end int,
) {
	checkRange(c, len(keys), begin, end)

	// The bin count heuristic is a tunable default, not a contract: any
	// positive count gives the same final order because of the in-bin sort.
	nbin := (end - begin) / 2
	if nbin < 1 {
		nbin = 1
	}

	kmin, kmax := keyMinMax(rt, keys, begin, end)
	comp := NewBinOp1D(nbin, kmin, kmax)
	binSort(rt, c, keys, comp, false, true, begin, end)
}

// SortByKeyWithComparator is SortByKey with a caller-supplied key-to-bin
// mapping in place of the automatic range-based bucketing.
func SortByKeyWithComparator[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, comp Comparator[K],
) {
	SortByKeyWithComparatorRange(rt, c, keys, comp, 0, c.Size())
}

// SortByKeyWithComparatorRange is SortByKeyWithComparator restricted to the
// records in [begin, end).
func SortByKeyWithComparatorRange[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, comp Comparator[K],
	begin, end int,
) {
	checkRange(c, len(keys), begin, end)
	binSort(rt, c, keys, comp, false, true, begin, end)
}

// BinByKey groups the records of c into nbin equal-width key buckets and
// returns the binning data. If createDataOnly is true the container's
// fields are left untouched; otherwise every field is reordered so each
// bin's records are contiguous. Within a bin, records keep their original
// relative order.
func BinByKey[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K,
	nbin int, createDataOnly bool,
) BinningData {
	return BinByKeyRange(rt, c, keys, nbin, createDataOnly, 0, c.Size())
}

// BinByKeyRange is BinByKey restricted to the records in [begin, end).
func BinByKeyRange[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K,
	nbin int, createDataOnly bool, begin, end int,
) BinningData {
	checkRange(c, len(keys), begin, end)
	if begin == end {
		return BinningData{}
	}

	kmin, kmax := keyMinMax(rt, keys, begin, end)
	comp := NewBinOp1D(nbin, kmin, kmax)
	return binSort(rt, c, keys, comp, createDataOnly, false, begin, end)
}

// BinByKeyWithComparator is BinByKey with a caller-supplied key-to-bin
// mapping in place of the automatic range-based bucketing.
func BinByKeyWithComparator[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, comp Comparator[K],
	createDataOnly bool,
) BinningData {
	return BinByKeyWithComparatorRange(
		rt, c, keys, comp, createDataOnly, 0, c.Size())
}

// BinByKeyWithComparatorRange is BinByKeyWithComparator restricted to the
// records in [begin, end).
func BinByKeyWithComparatorRange[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, comp Comparator[K],
	createDataOnly bool, begin, end int,
) BinningData {
	checkRange(c, len(keys), begin, end)
	return binSort(rt, c, keys, comp, createDataOnly, false, begin, end)
}

// SortByMember fully reorders every field of c by the values of the given
// scalar field. The result is identical to copying the field into a key
// buffer and calling SortByKey with it.
func SortByMember(rt *parallel.Runtime, c *aosoa.AoSoA, field int) {
	SortByMemberRange(rt, c, field, 0, c.Size())
}

// SortByMemberRange is SortByMember restricted to the records in
// [begin, end).
func SortByMemberRange(
	rt *parallel.Runtime, c *aosoa.AoSoA, field, begin, end int,
) {
	f := memberField(c, field, "SortByMember")
	switch f.Kind {
	case schema.Int32:
		SortByKeyRange(rt, c, memberKeys[int32](rt, c, field), begin, end)
	case schema.Int64:
		SortByKeyRange(rt, c, memberKeys[int64](rt, c, field), begin, end)
	case schema.Uint32:
		SortByKeyRange(rt, c, memberKeys[uint32](rt, c, field), begin, end)
	case schema.Uint64:
		SortByKeyRange(rt, c, memberKeys[uint64](rt, c, field), begin, end)
	case schema.Float32:
		SortByKeyRange(rt, c, memberKeys[float32](rt, c, field), begin, end)
	case schema.Float64:
		SortByKeyRange(rt, c, memberKeys[float64](rt, c, field), begin, end)
	default:
		lib.InternalErrorf("Field '%s' has invalid Kind, %d.",
			f.Name, int64(f.Kind))
	}
}

// BinByMember groups the records of c into nbin equal-width buckets of the
// given scalar field's values and returns the binning data.
func BinByMember(
	rt *parallel.Runtime, c *aosoa.AoSoA, field, nbin int,
	createDataOnly bool,
) BinningData {
	return BinByMemberRange(rt, c, field, nbin, createDataOnly, 0, c.Size())
}

// BinByMemberRange is BinByMember restricted to the records in [begin, end).
func BinByMemberRange(
	rt *parallel.Runtime, c *aosoa.AoSoA, field, nbin int,
	createDataOnly bool, begin, end int,
) BinningData {
	f := memberField(c, field, "BinByMember")
	switch f.Kind {
	case schema.Int32:
		return BinByKeyRange(rt, c, memberKeys[int32](rt, c, field),
			nbin, createDataOnly, begin, end)
	case schema.Int64:
		return BinByKeyRange(rt, c, memberKeys[int64](rt, c, field),
			nbin, createDataOnly, begin, end)
	case schema.Uint32:
		return BinByKeyRange(rt, c, memberKeys[uint32](rt, c, field),
			nbin, createDataOnly, begin, end)
	case schema.Uint64:
		return BinByKeyRange(rt, c, memberKeys[uint64](rt, c, field),
			nbin, createDataOnly, begin, end)
	case schema.Float32:
		return BinByKeyRange(rt, c, memberKeys[float32](rt, c, field),
			nbin, createDataOnly, begin, end)
	case schema.Float64:
		return BinByKeyRange(rt, c, memberKeys[float64](rt, c, field),
			nbin, createDataOnly, begin, end)
	}
	lib.InternalErrorf("Field '%s' has invalid Kind, %d.",
		f.Name, int64(f.Kind))
	panic("unreachable")
}

// BinByCartesianGrid3d groups the records of c by the grid cell containing
// each record's position and returns the grid binning data. positionField
// must be a 3-vector float field. Cells are ordered with the x cell index
// moving the slowest and the z cell index the fastest.
func BinByCartesianGrid3d(
	rt *parallel.Runtime, c *aosoa.AoSoA, positionField int,
	createDataOnly bool, grid CartesianGrid3d,
) CartesianGrid3dBinningData {
	return BinByCartesianGrid3dRange(
		rt, c, positionField, createDataOnly, grid, 0, c.Size())
}

// BinByCartesianGrid3dRange is BinByCartesianGrid3d restricted to the
// records in [begin, end).
func BinByCartesianGrid3dRange(
	rt *parallel.Runtime, c *aosoa.AoSoA, positionField int,
	createDataOnly bool, grid CartesianGrid3d, begin, end int,
) CartesianGrid3dBinningData {
	checkRange(c, c.Size(), begin, end)

	// The per-axis cell counts are computed once here and carried into the
	// result so cardinal index queries agree with the binning that was
	// actually performed.
	nb := grid.bins()
	for dim := 0; dim < 3; dim++ {
		if nb[dim] < 1 {
			lib.InternalErrorf("The grid has %d cells in dimension %d: the bounds and cell width must give at least one cell per axis.", nb[dim], dim)
		}
	}

	n := end - begin
	if n == 0 {
		return CartesianGrid3dBinningData{BinningData{}, nb}
	}

	pos := positionKeys(rt, c, positionField)
	bins := make([]int, n)
	rt.For(0, n, func(i int) {
		p := pos[begin+i]
		bi := cellIndex(p[0], grid.XMin, grid.Dx, nb[0])
		bj := cellIndex(p[1], grid.YMin, grid.Dy, nb[1])
		bk := cellIndex(p[2], grid.ZMin, grid.Dz, nb[2])
		bins[i] = (bi*nb[1]+bj)*nb[2] + bk
	})

	counts, offsets, perm := createBinning(rt, bins, nb[0]*nb[1]*nb[2], begin)
	if !createDataOnly {
		c.Permute(rt, perm, begin, end)
	}
	return CartesianGrid3dBinningData{BinningData{counts, offsets, perm}, nb}
}

// binSort is the shared implementation of the key-based paths: bucket
// assignment, binning, optional in-bin sort, optional physical reorder.
func binSort[K schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, keys []K, comp Comparator[K],
	createDataOnly, sortWithinBins bool, begin, end int,
) BinningData {
	n := end - begin
	if n == 0 {
		return BinningData{}
	}
	nbin := comp.NumBin()
	if nbin <= 0 {
		lib.InternalErrorf("The comparator reports %d bins.", nbin)
	}

	bins := make([]int, n)
	rt.For(0, n, func(i int) {
		bins[i] = comp.BinIndex(keys[begin+i])
	})

	counts, offsets, perm := createBinning(rt, bins, nbin, begin)

	if sortWithinBins {
		rt.For(0, nbin, func(b int) {
			seg := perm[offsets[b] : offsets[b]+counts[b]]
			if len(seg) < 2 {
				return
			}
			sort.Slice(seg, func(x, y int) bool {
				kx, ky := keys[seg[x]], keys[seg[y]]
				if kx != ky {
					return kx < ky
				}
				return seg[x] < seg[y]
			})
		})
	}

	if !createDataOnly {
		c.Permute(rt, perm, begin, end)
	}
	return BinningData{counts, offsets, perm}
}

// createBinning turns per-record bin assignments into bin counts, exclusive
// offsets, and the new-to-old permutation. bins[i] is the bin of record
// begin+i.
//
// The counting runs in three passes: per-chunk histograms, a serial
// exclusive scan across bins and chunks, and a per-chunk walk that assigns
// destinations in original index order. No two workers write the same
// counter, so the result is deterministic for given inputs and stable by
// original position within each bin.
func createBinning(
	rt *parallel.Runtime, bins []int, nbin, begin int,
) (counts, offsets, perm []int) {
	n := len(bins)
	nw := rt.Workers()
	counts = make([]int, nbin)
	offsets = make([]int, nbin)
	perm = make([]int, n)

	local := make([][]int, nw)
	rt.ForChunks(0, n, func(chunk, lo, hi int) {
		h := make([]int, nbin)
		for i := lo; i < hi; i++ {
			h[bins[i]]++
		}
		local[chunk] = h
	})

	for w := 0; w < nw; w++ {
		for b, hb := range local[w] {
			counts[b] += hb
		}
	}

	sum := 0
	for b := 0; b < nbin; b++ {
		offsets[b] = sum
		sum += counts[b]
	}

	// starts[w][b] is the first destination slot chunk w may use in bin b:
	// the bin's offset plus everything earlier chunks put there.
	starts := make([][]int, nw)
	run := make([]int, nbin)
	copy(run, offsets)
	for w := 0; w < nw; w++ {
		starts[w] = make([]int, nbin)
		copy(starts[w], run)
		for b, hb := range local[w] {
			run[b] += hb
		}
	}

	rt.ForChunks(0, n, func(chunk, lo, hi int) {
		next := starts[chunk]
		for i := lo; i < hi; i++ {
			b := bins[i]
			perm[next[b]] = begin + i
			next[b]++
		}
	})

	return counts, offsets, perm
}

// keyMinMax finds the minimum and maximum key over [begin, end) with a
// per-chunk reduction.
func keyMinMax[K schema.Element](
	rt *parallel.Runtime, keys []K, begin, end int,
) (kmin, kmax K) {
	nw := rt.Workers()
	mins, maxs := make([]K, nw), make([]K, nw)
	nonEmpty := make([]bool, nw)

	rt.ForChunks(begin, end, func(chunk, lo, hi int) {
		if lo == hi {
			return
		}
		mn, mx := keys[lo], keys[lo]
		for i := lo + 1; i < hi; i++ {
			if k := keys[i]; k < mn {
				mn = k
			} else if k > mx {
				mx = k
			}
		}
		mins[chunk], maxs[chunk], nonEmpty[chunk] = mn, mx, true
	})

	first := true
	for w := 0; w < nw; w++ {
		if !nonEmpty[w] {
			continue
		}
		if first {
			kmin, kmax, first = mins[w], maxs[w], false
			continue
		}
		if mins[w] < kmin {
			kmin = mins[w]
		}
		if maxs[w] > kmax {
			kmax = maxs[w]
		}
	}
	return kmin, kmax
}

// memberKeys copies a scalar field into a fresh key buffer covering the
// whole container, so key indices match record indices.
func memberKeys[T schema.Element](
	rt *parallel.Runtime, c *aosoa.AoSoA, field int,
) []T {
	s := aosoa.GetSlice[T](c, field)
	keys := make([]T, s.Len())
	rt.For(0, s.Len(), func(i int) {
		keys[i] = s.Get(i)
	})
	return keys
}

// positionKeys copies a 3-vector float field into a fresh position buffer
// covering the whole container.
func positionKeys(
	rt *parallel.Runtime, c *aosoa.AoSoA, field int,
) [][3]float64 {
	f := containerField(c, field)
	if f.Rank() != 1 || f.Extents[0] != 3 {
		lib.InternalErrorf("Grid binning requires a 3-vector position field, but '%s' has shape %v.", f.Name, f.Extents)
	}

	out := make([][3]float64, c.Size())
	switch f.Kind {
	case schema.Float32:
		s := aosoa.GetSlice[float32](c, field)
		rt.For(0, c.Size(), func(i int) {
			for d := 0; d < 3; d++ {
				out[i][d] = float64(s.At(i, d))
			}
		})
	case schema.Float64:
		s := aosoa.GetSlice[float64](c, field)
		rt.For(0, c.Size(), func(i int) {
			for d := 0; d < 3; d++ {
				out[i][d] = s.At(i, d)
			}
		})
	default:
		lib.InternalErrorf("Grid binning requires a float position field, but '%s' stores %s elements.", f.Name, f.Kind.String())
	}
	return out
}

func containerField(c *aosoa.AoSoA, field int) schema.Field {
	s := c.Schema()
	if field < 0 || field >= s.Len() {
		lib.InternalErrorf("Field index %d passed for a schema with %d fields.", field, s.Len())
	}
	return s.Field(field)
}

func memberField(c *aosoa.AoSoA, field int, op string) schema.Field {
	f := containerField(c, field)
	if f.Rank() != 0 {
		lib.InternalErrorf("%s requires a scalar field, but '%s' has rank %d.", op, f.Name, f.Rank())
	}
	return f
}

func checkRange(c *aosoa.AoSoA, nKeys, begin, end int) {
	if begin < 0 || begin > end || end > c.Size() {
		lib.InternalErrorf("The range [%d, %d) is invalid for a container with %d records.", begin, end, c.Size())
	}
	if nKeys < end {
		lib.InternalErrorf("Only %d keys supplied for a range ending at %d.", nKeys, end)
	}
}
