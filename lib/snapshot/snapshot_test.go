package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/aosoa"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

func testContainer(n int) *aosoa.AoSoA {
	s := schema.New(
		schema.Vector("x", schema.Float64, 3),
		schema.Scalar("id", schema.Uint64),
		schema.Vector("v", schema.Float32, 3),
		schema.Scalar("type", schema.Int32),
	)
	c := aosoa.New(s, n)

	x := aosoa.GetSlice[float64](c, 0)
	id := aosoa.GetSlice[uint64](c, 1)
	v := aosoa.GetSlice[float32](c, 2)
	typ := aosoa.GetSlice[int32](c, 3)

	for p := 0; p < n; p++ {
		for d := 0; d < 3; d++ {
			x.SetAt(p, float64(p)+float64(d)/8, d)
			v.SetAt(p, -float32(p)-float32(d)/4, d)
		}
		id.Set(p, uint64(p)*3+1)
		typ.Set(p, int32(p%5))
	}
	return c
}

func checkEqual(t *testing.T, want, got *aosoa.AoSoA) {
	t.Helper()
	require.Equal(t, want.Size(), got.Size())
	require.Equal(t, want.Schema().Fields(), got.Schema().Fields())

	x0 := aosoa.GetSlice[float64](want, 0)
	x1 := aosoa.GetSlice[float64](got, 0)
	id0 := aosoa.GetSlice[uint64](want, 1)
	id1 := aosoa.GetSlice[uint64](got, 1)
	v0 := aosoa.GetSlice[float32](want, 2)
	v1 := aosoa.GetSlice[float32](got, 2)
	t0 := aosoa.GetSlice[int32](want, 3)
	t1 := aosoa.GetSlice[int32](got, 3)

	for p := 0; p < want.Size(); p++ {
		ok := assert.Equal(t, id0.Get(p), id1.Get(p)) &&
			assert.Equal(t, t0.Get(p), t1.Get(p))
		for d := 0; d < 3; d++ {
			ok = ok && assert.Equal(t, x0.At(p, d), x1.At(p, d)) &&
				assert.Equal(t, v0.At(p, d), v1.At(p, d))
		}
		if !ok {
			return
		}
	}
}

func TestRoundTrip(t *testing.T) {
	orders := map[string]binary.ByteOrder{
		"little": binary.LittleEndian,
		"big":    binary.BigEndian,
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			fname := filepath.Join(t.TempDir(), "particles.aosoa")
			c := testContainer(777)

			require.NoError(t, Write(fname, c, order))

			got, err := Read(fname, parallel.New(4))
			require.NoError(t, err)
			checkEqual(t, c, got)
		})
	}
}

func TestRoundTripEmpty(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "empty.aosoa")
	c := testContainer(0)

	require.NoError(t, Write(fname, c, binary.LittleEndian))

	got, err := Read(fname, parallel.Serial())
	require.NoError(t, err)
	require.Equal(t, 0, got.Size())
	require.Equal(t, c.Schema().Fields(), got.Schema().Fields())
}

func TestBadMagicNumber(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "junk.aosoa")
	require.NoError(t, os.WriteFile(fname,
		[]byte("this is not a snapshot file"), 0644))

	_, err := Read(fname, parallel.Serial())
	assert.Error(t, err)
}

// schemaTableFile writes a snapshot with a zero-record container and a
// single hand-encoded field descriptor, so the descriptor's kind, rank, and
// extents can be set to values Write would never produce.
func schemaTableFile(t *testing.T, kind, rank int64, extents ...int64) string {
	t.Helper()
	order := binary.LittleEndian
	buf := &bytes.Buffer{}

	binary.Write(buf, order, uint32(MagicNumber))
	binary.Write(buf, order, lib.Version)
	binary.Write(buf, order, int64(0)) // records
	binary.Write(buf, order, int64(1)) // fields

	binary.Write(buf, order, int64(1))
	buf.WriteByte('x')
	binary.Write(buf, order, kind)
	binary.Write(buf, order, rank)
	for _, e := range extents {
		binary.Write(buf, order, e)
	}
	binary.Write(buf, order, int64(0)) // empty compressed block

	fname := filepath.Join(t.TempDir(), "corrupt.aosoa")
	require.NoError(t, os.WriteFile(fname, buf.Bytes(), 0644))
	return fname
}

func TestCorruptSchemaTable(t *testing.T) {
	tests := []struct {
		name  string
		fname string
	}{
		{"bad kind", schemaTableFile(t, 99, 0)},
		{"negative kind", schemaTableFile(t, -1, 0)},
		{"zero extent", schemaTableFile(t, int64(schema.Float64), 1, 0)},
		{"negative extent", schemaTableFile(t, int64(schema.Float64), 2, 3, -4)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Read(test.fname, parallel.Serial())
			assert.Error(t, err)
		})
	}
}

func TestTruncatedFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "truncated.aosoa")
	c := testContainer(100)
	require.NoError(t, Write(fname, c, binary.LittleEndian))

	b, err := os.ReadFile(fname)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fname, b[:len(b)/2], 0644))

	_, err = Read(fname, parallel.Serial())
	assert.Error(t, err)
}
