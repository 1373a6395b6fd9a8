// Package npycodec adds a codec for NumPy ".npy" array items, held natively
// as gonum dense matrices. Importing the package registers the codec:
//
//	import _ "github.com/scidatacontainer/scidata-go/codec/npycodec"
package npycodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/opencontainers/go-digest"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	scidata "github.com/scidatacontainer/scidata-go"
)

func init() {
	scidata.MustRegister("npy", New, scidata.KindArray)
}

// Array is the native value of an ".npy" item. It wraps a dense matrix so
// that the container can dispatch it by kind.
type Array struct {
	*mat.Dense
}

// DataKind marks Array values for native-value dispatch.
func (Array) DataKind() scidata.Kind { return scidata.KindArray }

// New returns an empty array codec.
func New() scidata.Codec { return &codec{} }

type codec struct {
	value Array
}

func (c *codec) Encode() ([]byte, error) {
	if c.value.Dense == nil {
		return nil, errors.New("npy: no value")
	}
	var buf bytes.Buffer
	if err := npyio.Write(&buf, c.value.Dense); err != nil {
		return nil, fmt.Errorf("npy: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *codec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *codec) Decode(data []byte) error {
	var m mat.Dense
	if err := npyio.Read(bytes.NewReader(data), &m); err != nil {
		return fmt.Errorf("npy: %w", err)
	}
	c.value = Array{&m}
	return nil
}

// Hash digests the matrix dimensions followed by the row-major elements in
// IEEE 754 little-endian order, so that the digest is independent of the
// npy header layout.
func (c *codec) Hash() (string, error) {
	if c.value.Dense == nil {
		return "", errors.New("npy: no value")
	}
	return digest.FromBytes(matrixBytes(c.value.Dense)).Encoded(), nil
}

func (c *codec) Value() any { return c.value }

func (c *codec) SetValue(v any) error {
	switch vv := v.(type) {
	case Array:
		c.value = vv
	case *mat.Dense:
		c.value = Array{vv}
	default:
		return fmt.Errorf("npy: unsupported value type %T", v)
	}
	if c.value.Dense == nil {
		return errors.New("npy: nil matrix")
	}
	return nil
}

func matrixBytes(m *mat.Dense) []byte {
	rows, cols := m.Dims()
	buf := make([]byte, 0, 16+rows*cols*8)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rows))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(cols))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.At(i, j)))
		}
	}
	return buf
}
