// Package archive defines the physical representation of a data container:
// a driver interface turning an item path to byte mapping into a single
// archive blob and back, a named driver registry, and magic-byte format
// detection.
//
// Drivers register themselves by name. The ZIP driver is linked by the core
// package; the HDF5 driver is a cgo package linked only by importing
// archive/hdf5dc.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
)

const (
	// FormatZip names the ZIP-like archive format.
	FormatZip = "zip"

	// FormatHDF5 names the HDF5-like structured archive format.
	FormatHDF5 = "hdf5"
)

// Compression methods understood by the ZIP driver. The values mirror the
// ZIP method identifiers and are passed through opaquely.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

// DefaultLevel selects each compressor's default compression level.
const DefaultLevel = -1

// ErrUnknownFormat is returned when archive bytes match no known magic
// number.
var ErrUnknownFormat = errors.New("unknown file format")

// Options carries pass-through encoder settings. Drivers ignore settings
// that do not apply to their format.
type Options struct {
	// Method is the compression method for archive entries.
	Method uint16

	// Level is the compression level, DefaultLevel for the compressor's
	// default.
	Level int
}

// Driver encodes and decodes one physical archive format.
type Driver interface {
	// Name returns the format name the driver registers under.
	Name() string

	// Structured reports whether the format stores items in a structured
	// representation rather than as opaque archive entries. Containers
	// require the structured codec capability of their items before
	// encoding to a structured format.
	Structured() bool

	// EncodeTo writes the archive serialization of the item mapping.
	EncodeTo(w io.Writer, items map[string][]byte, opts Options) error

	// Decode parses an archive blob back into an item mapping. Items for
	// which skip returns true are not materialized; skip may be nil.
	Decode(data []byte, skip func(path string) bool) (map[string][]byte, error)
}

var drivers = make(map[string]Driver)

// Register makes a driver available by its name. It panics if the driver is
// nil or its name is already taken; drivers register from init functions.
func Register(d Driver) {
	if d == nil {
		panic("archive: Register called with nil driver")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic(fmt.Sprintf("archive: driver %q already registered", d.Name()))
	}
	drivers[d.Name()] = d
}

// Get returns the driver registered under name.
func Get(name string) (Driver, error) {
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("archive: no driver registered for format %q", name)
	}
	return d, nil
}

// Encode is a convenience wrapper around Driver.EncodeTo returning the
// archive blob as a byte slice.
func Encode(d Driver, items map[string][]byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.EncodeTo(&buf, items, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	zipMagics = [][]byte{
		{0x50, 0x4b, 0x03, 0x04},
		{0x50, 0x4b, 0x05, 0x06},
		{0x50, 0x4b, 0x07, 0x08},
	}
	hdf5Magic = []byte{0x89, 0x48, 0x44, 0x46, 0x0d, 0x0a, 0x1a, 0x0a}
)

// Detect identifies the archive format from its leading magic bytes.
func Detect(data []byte) (string, error) {
	for _, magic := range zipMagics {
		if bytes.HasPrefix(data, magic) {
			return FormatZip, nil
		}
	}
	if bytes.HasPrefix(data, hdf5Magic) {
		return FormatHDF5, nil
	}
	return "", ErrUnknownFormat
}

// SortedPaths returns the item paths in lexicographic order, the canonical
// entry order of every archive format.
func SortedPaths(items map[string][]byte) []string {
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
