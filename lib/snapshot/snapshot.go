/*package snapshot writes aosoa containers to disk and reads them back. A
snapshot stores the schema alongside the data, so a container can be
reconstructed without outside information. Field data is compressed with
zstd one field at a time, which compresses well because each block of the
file holds values of a single variable.

Unlike the in-memory layers, I/O problems here are user-correctable, so the
functions in this package return errors instead of aborting.
*/
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/aosoa/lib"
	"github.com/phil-mansfield/aosoa/lib/aosoa"
	"github.com/phil-mansfield/aosoa/lib/parallel"
	"github.com/phil-mansfield/aosoa/lib/schema"
)

const (
	// MagicNumber is an arbitrary number at the start of all snapshot files
	// which should help identify when the code is run on something else by
	// accident.
	MagicNumber = 0xa050a0d0
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0xd0a050a0
)

// Write stores c in the file fname using the given byte order. The schema,
// record count, and every field's values are written; the blocked in-memory
// layout is not, so files do not depend on BlockSize.
func Write(fname string, c *aosoa.AoSoA, order binary.ByteOrder) error {
	buf := &bytes.Buffer{}

	binary.Write(buf, order, uint32(MagicNumber))
	binary.Write(buf, order, lib.Version)
	binary.Write(buf, order, int64(c.Size()))
	binary.Write(buf, order, int64(c.Schema().Len()))

	for _, f := range c.Schema().Fields() {
		if err := writeField(buf, order, f); err != nil {
			return err
		}
	}

	for i := 0; i < c.Schema().Len(); i++ {
		if err := writeData(buf, order, c, i); err != nil {
			return err
		}
	}

	return os.WriteFile(fname, buf.Bytes(), 0644)
}

func writeField(buf *bytes.Buffer, order binary.ByteOrder, f schema.Field) error {
	name := []byte(f.Name)
	binary.Write(buf, order, int64(len(name)))
	buf.Write(name)
	binary.Write(buf, order, int64(f.Kind))
	binary.Write(buf, order, int64(f.Rank()))
	for _, e := range f.Extents {
		binary.Write(buf, order, int64(e))
	}
	return nil
}

func writeData(
	buf *bytes.Buffer, order binary.ByteOrder, c *aosoa.AoSoA, field int,
) error {
	f := c.Schema().Field(field)

	raw := &bytes.Buffer{}
	var err error
	switch f.Kind {
	case schema.Int32:
		err = binary.Write(raw, order, fieldValues[int32](c, field))
	case schema.Int64:
		err = binary.Write(raw, order, fieldValues[int64](c, field))
	case schema.Uint32:
		err = binary.Write(raw, order, fieldValues[uint32](c, field))
	case schema.Uint64:
		err = binary.Write(raw, order, fieldValues[uint64](c, field))
	case schema.Float32:
		err = binary.Write(raw, order, fieldValues[float32](c, field))
	case schema.Float64:
		err = binary.Write(raw, order, fieldValues[float64](c, field))
	}
	if err != nil {
		return fmt.Errorf("could not encode the field '%s': %w", f.Name, err)
	}

	comp, err := zstd.Compress(nil, raw.Bytes())
	if err != nil {
		return fmt.Errorf("could not compress the field '%s': %w", f.Name, err)
	}

	binary.Write(buf, order, int64(len(comp)))
	buf.Write(comp)
	return nil
}

// fieldValues flattens one field into record-major order: all of record 0's
// elements, then record 1's, and so on.
func fieldValues[T schema.Element](c *aosoa.AoSoA, field int) []T {
	s := aosoa.GetSlice[T](c, field)
	tl := c.Schema().Field(field).TensorLen()

	vals := make([]T, c.Size()*tl)
	for p := 0; p < c.Size(); p++ {
		for t := 0; t < tl; t++ {
			vals[p*tl+t] = s.Flat(p, t)
		}
	}
	return vals
}

// Read reconstructs a container from the file fname. The file's byte order
// is detected from its magic number.
func Read(fname string, rt *parallel.Runtime) (*aosoa.AoSoA, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewReader(b)

	var magic uint32
	var order binary.ByteOrder = binary.LittleEndian
	if err := binary.Read(buf, order, &magic); err != nil {
		return nil, fmt.Errorf("%s is not a snapshot file: %w", fname, err)
	}
	switch magic {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s is not a snapshot file: the magic number is 0x%x, not 0x%x.", fname, magic, uint32(MagicNumber))
	}

	var version uint64
	var n, nFields int64
	if err := readAll(buf, order, &version, &n, &nFields); err != nil {
		return nil, fmt.Errorf("%s has a truncated header: %w", fname, err)
	}
	if version != lib.Version {
		return nil, fmt.Errorf("%s was written with format version %d, but this version of the code reads version %d.", fname, version, lib.Version)
	}
	if n < 0 || nFields < 0 {
		return nil, fmt.Errorf("%s has a corrupted header.", fname)
	}

	fields := make([]schema.Field, nFields)
	seen := map[string]bool{}
	for i := range fields {
		if fields[i], err = readField(buf, order); err != nil {
			return nil, fmt.Errorf("%s has a corrupted schema table: %w",
				fname, err)
		}
		if fields[i].Name == "" || seen[fields[i].Name] {
			return nil, fmt.Errorf("%s has a corrupted schema table: empty or repeated field name '%s'", fname, fields[i].Name)
		}
		seen[fields[i].Name] = true
	}

	c := aosoa.New(schema.New(fields...), int(n))
	for i := range fields {
		if err := readData(buf, order, rt, c, i); err != nil {
			return nil, fmt.Errorf("could not read the field '%s' from %s: %w",
				fields[i].Name, fname, err)
		}
	}
	return c, nil
}

func readField(buf *bytes.Reader, order binary.ByteOrder) (schema.Field, error) {
	var nameLen int64
	if err := binary.Read(buf, order, &nameLen); err != nil {
		return schema.Field{}, err
	}
	if nameLen < 0 || nameLen > int64(buf.Len()) {
		return schema.Field{}, fmt.Errorf("invalid field name length, %d", nameLen)
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(buf, name); err != nil {
		return schema.Field{}, err
	}

	var kind, rank int64
	if err := readAll(buf, order, &kind, &rank); err != nil {
		return schema.Field{}, err
	}
	if !schema.Kind(kind).Valid() {
		return schema.Field{}, fmt.Errorf("invalid field kind, %d", kind)
	}
	if rank < 0 || rank > schema.MaxRank {
		return schema.Field{}, fmt.Errorf("invalid field rank, %d", rank)
	}

	var extents []int
	if rank > 0 {
		extents = make([]int, rank)
	}
	for d := range extents {
		var e int64
		if err := binary.Read(buf, order, &e); err != nil {
			return schema.Field{}, err
		}
		if e < 1 {
			return schema.Field{}, fmt.Errorf(
				"invalid extent %d in dimension %d", e, d)
		}
		extents[d] = int(e)
	}

	return schema.Field{
		Name: string(name), Kind: schema.Kind(kind), Extents: extents,
	}, nil
}

func readData(
	buf *bytes.Reader, order binary.ByteOrder, rt *parallel.Runtime,
	c *aosoa.AoSoA, field int,
) error {
	var compLen int64
	if err := binary.Read(buf, order, &compLen); err != nil {
		return err
	}
	if compLen < 0 || compLen > int64(buf.Len()) {
		return fmt.Errorf("invalid compressed block length, %d", compLen)
	}

	comp := make([]byte, compLen)
	if _, err := io.ReadFull(buf, comp); err != nil {
		return err
	}

	f := c.Schema().Field(field)
	raw, err := zstd.Decompress(nil, comp)
	if err != nil {
		return err
	}
	if len(raw) != c.Size()*f.TensorLen()*f.Kind.Size() {
		return fmt.Errorf("decompressed to %d bytes, but the field needs %d",
			len(raw), c.Size()*f.TensorLen()*f.Kind.Size())
	}

	switch f.Kind {
	case schema.Int32:
		return setFieldValues[int32](raw, order, rt, c, field)
	case schema.Int64:
		return setFieldValues[int64](raw, order, rt, c, field)
	case schema.Uint32:
		return setFieldValues[uint32](raw, order, rt, c, field)
	case schema.Uint64:
		return setFieldValues[uint64](raw, order, rt, c, field)
	case schema.Float32:
		return setFieldValues[float32](raw, order, rt, c, field)
	default:
		return setFieldValues[float64](raw, order, rt, c, field)
	}
}

func setFieldValues[T schema.Element](
	raw []byte, order binary.ByteOrder, rt *parallel.Runtime,
	c *aosoa.AoSoA, field int,
) error {
	tl := c.Schema().Field(field).TensorLen()
	vals := make([]T, c.Size()*tl)
	if err := binary.Read(bytes.NewReader(raw), order, vals); err != nil {
		return err
	}

	s := aosoa.GetSlice[T](c, field)
	rt.For(0, c.Size(), func(p int) {
		for t := 0; t < tl; t++ {
			s.SetFlat(p, vals[p*tl+t], t)
		}
	})
	return nil
}

func readAll(buf *bytes.Reader, order binary.ByteOrder, xs ...interface{}) error {
	for _, x := range xs {
		if err := binary.Read(buf, order, x); err != nil {
			return err
		}
	}
	return nil
}
