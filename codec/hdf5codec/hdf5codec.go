// Package hdf5codec adds a codec for ".hdf5" items holding named numeric
// datasets, backed by the gonum HDF5 bindings. Importing the package
// registers the codec under both the "hdf5" and "h5" extensions:
//
//	import _ "github.com/scidatacontainer/scidata-go/codec/hdf5codec"
//
// The bindings operate on files, not byte streams, so encoding and decoding
// bridge through a temporary file.
package hdf5codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/opencontainers/go-digest"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/hdf5"

	scidata "github.com/scidatacontainer/scidata-go"
)

func init() {
	scidata.MustRegister("hdf5", New, scidata.KindGeneric)
	scidata.MustRegister("h5", "hdf5")
}

// Dataset is the native value of an ".hdf5" item: a mapping of dataset
// names to dense matrices.
type Dataset map[string]*mat.Dense

// DataKind marks Dataset values for native-value dispatch.
func (Dataset) DataKind() scidata.Kind { return scidata.KindGeneric }

// New returns an empty dataset codec.
func New() scidata.Codec { return &codec{} }

type codec struct {
	value Dataset
}

func (c *codec) Encode() ([]byte, error) {
	if c.value == nil {
		return nil, errors.New("hdf5: no value")
	}
	tmp, err := os.CreateTemp("", "scidata-*.h5")
	if err != nil {
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := c.writeFile(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	return data, nil
}

func (c *codec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *codec) writeFile(name string) error {
	f, err := hdf5.CreateFile(name, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("hdf5: create file: %w", err)
	}
	defer f.Close()

	keys := make([]string, 0, len(c.value))
	for k := range c.value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		m := c.value[key]
		rows, cols := m.Dims()
		space, err := hdf5.CreateSimpleDataspace([]uint{uint(rows), uint(cols)}, nil)
		if err != nil {
			return fmt.Errorf("hdf5: dataspace for %q: %w", key, err)
		}
		dset, err := f.CreateDataset(key, hdf5.T_NATIVE_DOUBLE, space)
		if err != nil {
			space.Close()
			return fmt.Errorf("hdf5: create dataset %q: %w", key, err)
		}
		data := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			data = append(data, m.RawRowView(i)...)
		}
		err = dset.Write(&data)
		dset.Close()
		space.Close()
		if err != nil {
			return fmt.Errorf("hdf5: write dataset %q: %w", key, err)
		}
	}
	return nil
}

func (c *codec) Decode(data []byte) error {
	tmp, err := os.CreateTemp("", "scidata-*.h5")
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("hdf5: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}

	f, err := hdf5.OpenFile(name, hdf5.F_ACC_RDONLY)
	if err != nil {
		return fmt.Errorf("hdf5: open file: %w", err)
	}
	defer f.Close()

	n, err := f.NumObjects()
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	value := make(Dataset, n)
	for i := uint(0); i < n; i++ {
		key, err := f.ObjectNameByIndex(i)
		if err != nil {
			return fmt.Errorf("hdf5: %w", err)
		}
		m, err := readDataset(&f.CommonFG, key)
		if err != nil {
			return fmt.Errorf("hdf5: read dataset %q: %w", key, err)
		}
		value[key] = m
	}
	c.value = value
	return nil
}

func readDataset(fg *hdf5.CommonFG, key string) (*mat.Dense, error) {
	dset, err := fg.OpenDataset(key)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected a 2-dimensional dataset, got %d dimensions", len(dims))
	}
	if dims[0] == 0 || dims[1] == 0 {
		return nil, fmt.Errorf("dataset has a zero-length dimension %dx%d", dims[0], dims[1])
	}

	rows, cols := int(dims[0]), int(dims[1])
	data := make([]float64, rows*cols)
	if err := dset.Read(&data); err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, data), nil
}

// Hash digests each dataset's name, dimensions and row-major elements in
// IEEE 754 little-endian order, in lexicographic name order, and digests
// the concatenated per-dataset digests. The result is independent of the
// HDF5 file layout.
func (c *codec) Hash() (string, error) {
	if c.value == nil {
		return "", errors.New("hdf5: no value")
	}
	keys := make([]string, 0, len(c.value))
	for k := range c.value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var all []byte
	for _, key := range keys {
		m := c.value[key]
		rows, cols := m.Dims()
		buf := make([]byte, 0, len(key)+16+rows*cols*8)
		buf = append(buf, key...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(rows))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(cols))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.At(i, j)))
			}
		}
		d := digest.FromBytes(buf)
		all = append(all, d.Encoded()...)
	}
	return digest.FromBytes(all).Encoded(), nil
}

func (c *codec) Value() any { return c.value }

func (c *codec) SetValue(v any) error {
	switch vv := v.(type) {
	case Dataset:
		c.value = vv
	case map[string]*mat.Dense:
		c.value = Dataset(vv)
	default:
		return fmt.Errorf("hdf5: unsupported value type %T", v)
	}
	return nil
}
