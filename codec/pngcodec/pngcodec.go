// Package pngcodec adds a codec for PNG image items, held natively as
// image.Image values. Importing the package registers the codec:
//
//	import _ "github.com/scidatacontainer/scidata-go/codec/pngcodec"
package pngcodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/opencontainers/go-digest"

	scidata "github.com/scidatacontainer/scidata-go"
)

func init() {
	scidata.MustRegister("png", New, scidata.KindImage)
}

// New returns an empty image codec.
func New() scidata.Codec { return &codec{} }

type codec struct {
	value image.Image
}

func (c *codec) Encode() ([]byte, error) {
	if c.value == nil {
		return nil, errors.New("png: no value")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.value); err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *codec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *codec) Decode(data []byte) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}
	c.value = img
	return nil
}

// Hash digests the image dimensions followed by the 16-bit RGBA samples of
// every pixel in row-major order. The digest depends only on the pixel
// content, not on the color model or the encoder's compression choices.
func (c *codec) Hash() (string, error) {
	if c.value == nil {
		return "", errors.New("png: no value")
	}
	b := c.value.Bounds()
	buf := make([]byte, 0, 16+b.Dx()*b.Dy()*8)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Dx()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Dy()))
	var sample [8]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := c.value.At(x, y).RGBA()
			binary.LittleEndian.PutUint16(sample[0:], uint16(r))
			binary.LittleEndian.PutUint16(sample[2:], uint16(g))
			binary.LittleEndian.PutUint16(sample[4:], uint16(bl))
			binary.LittleEndian.PutUint16(sample[6:], uint16(a))
			buf = append(buf, sample[:]...)
		}
	}
	return digest.FromBytes(buf).Encoded(), nil
}

func (c *codec) Value() any { return c.value }

func (c *codec) SetValue(v any) error {
	img, ok := v.(image.Image)
	if !ok {
		return fmt.Errorf("png: unsupported value type %T", v)
	}
	c.value = img
	return nil
}
