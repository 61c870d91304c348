/*binstats fills a container with randomly placed particles, bins them onto
a regular 3D grid, and prints cell occupancy statistics. It is mainly a
smoke test for the binning pipeline and a template for hooking real
simulation data up to it.

Usage:

	binstats config.ini

Example config:

	[grid]
	dx = 1.0
	dy = 1.0
	dz = 1.0
	xmax = 10.0
	ymax = 10.0
	zmax = 10.0

	[particles]
	n = 100000
	seed = 42

	[run]
	threads = -1
	output = particles.aosoa
*/
package main

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/stat"
	gcfg "gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/aosoa"
	"github.com/phil-mansfield/aosoa/lib/binsort"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
	"github.com/phil-mansfield/aosoa/lib/snapshot"
)

type Config struct {
	Grid struct {
		Dx, Dy, Dz       float64
		XMin, YMin, ZMin float64
		XMax, YMax, ZMax float64
	}
	Particles struct {
		N    int
		Seed int64
	}
	Run struct {
		Threads int
		Output  string
	}
}

func main() {
	if len(os.Args) != 2 {
		lib.ExternalErrorf("Usage: binstats config.ini")
	}

	cfg := Config{}
	cfg.Run.Threads = -1
	if err := gcfg.ReadFileInto(&cfg, os.Args[1]); err != nil {
		lib.ExternalErrorf("Could not read the config file %s: %v",
			os.Args[1], err)
	}
	checkConfig(&cfg)

	lib.SetThreads(cfg.Run.Threads)
	rt := parallel.New(cfg.Run.Threads)

	c := makeParticles(&cfg)
	grid := binsort.CartesianGrid3d{
		Dx: cfg.Grid.Dx, Dy: cfg.Grid.Dy, Dz: cfg.Grid.Dz,
		XMin: cfg.Grid.XMin, YMin: cfg.Grid.YMin, ZMin: cfg.Grid.ZMin,
		XMax: cfg.Grid.XMax, YMax: cfg.Grid.YMax, ZMax: cfg.Grid.ZMax,
	}

	data := binsort.BinByCartesianGrid3d(rt, c, 0, false, grid)
	printStats(data)

	if cfg.Run.Output != "" {
		err := snapshot.Write(cfg.Run.Output, c, binary.LittleEndian)
		if err != nil {
			lib.ExternalErrorf("Could not write %s: %v", cfg.Run.Output, err)
		}
		fmt.Printf("Wrote the binned container to %s.\n", cfg.Run.Output)
	}
}

func checkConfig(cfg *Config) {
	g := &cfg.Grid
	if g.Dx <= 0 || g.Dy <= 0 || g.Dz <= 0 {
		lib.ExternalErrorf("The grid cell widths must be positive, but (dx, dy, dz) = (%g, %g, %g).", g.Dx, g.Dy, g.Dz)
	}
	if g.XMax <= g.XMin || g.YMax <= g.YMin || g.ZMax <= g.ZMin {
		lib.ExternalErrorf("The grid upper bounds must be larger than the lower bounds.")
	}
	if cfg.Particles.N <= 0 {
		lib.ExternalErrorf("The particle count must be positive, but n = %d.",
			cfg.Particles.N)
	}
}

func makeParticles(cfg *Config) *aosoa.AoSoA {
	s := schema.New(
		schema.Vector("x", schema.Float64, 3),
		schema.Scalar("id", schema.Uint64),
		schema.Vector("v", schema.Float32, 3),
	)
	c := aosoa.New(s, cfg.Particles.N)

	x := aosoa.GetSliceByName[float64](c, "x")
	id := aosoa.GetSliceByName[uint64](c, "id")
	v := aosoa.GetSliceByName[float32](c, "v")

	g := &cfg.Grid
	low := [3]float64{g.XMin, g.YMin, g.ZMin}
	span := [3]float64{g.XMax - g.XMin, g.YMax - g.YMin, g.ZMax - g.ZMin}

	rng := rand.New(rand.NewSource(cfg.Particles.Seed))
	for p := 0; p < c.Size(); p++ {
		for d := 0; d < 3; d++ {
			x.SetAt(p, low[d]+span[d]*rng.Float64(), d)
			v.SetAt(p, float32(rng.NormFloat64()), d)
		}
		id.Set(p, uint64(p))
	}

	return c
}

func printStats(data binsort.CartesianGrid3dBinningData) {
	d1 := data.Data1d()
	occupancy := make([]float64, d1.NumBin())
	minOcc, maxOcc := d1.BinSize(0), d1.BinSize(0)
	for b := 0; b < d1.NumBin(); b++ {
		size := d1.BinSize(b)
		occupancy[b] = float64(size)
		if size < minOcc {
			minOcc = size
		}
		if size > maxOcc {
			maxOcc = size
		}
	}

	fmt.Printf("Grid: %d x %d x %d cells (%d total)\n",
		data.NumBin(0), data.NumBin(1), data.NumBin(2), data.TotalBins())
	fmt.Printf("Particles: %d\n", d1.Len())
	fmt.Printf("Cell occupancy: mean = %.3f, std dev = %.3f, min = %d, max = %d\n",
		stat.Mean(occupancy, nil), stat.StdDev(occupancy, nil),
		minOcc, maxOcc)
}
