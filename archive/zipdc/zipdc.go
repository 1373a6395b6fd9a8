// Package zipdc provides the ZIP archive driver. Item payloads become ZIP
// entries in lexicographic path order; compression method and level pass
// through from the container options. Deflate compression is backed by the
// klauspost flate implementation.
package zipdc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/scidatacontainer/scidata-go/archive"
)

func init() {
	archive.Register(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return archive.FormatZip }

func (d *driver) Structured() bool { return false }

func (d *driver) EncodeTo(w io.Writer, items map[string][]byte, opts archive.Options) error {
	zw := zip.NewWriter(w)
	level := opts.Level
	if level == archive.DefaultLevel {
		level = flate.DefaultCompression
	}
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, path := range archive.SortedPaths(items) {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   path,
			Method: opts.Method,
		})
		if err != nil {
			return fmt.Errorf("zip: create entry %q: %w", path, err)
		}
		if _, err := fw.Write(items[path]); err != nil {
			return fmt.Errorf("zip: write entry %q: %w", path, err)
		}
	}
	return zw.Close()
}

func (d *driver) Decode(data []byte, skip func(path string) bool) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip: %w", err)
	}

	items := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if skip != nil && skip(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("zip: open entry %q: %w", f.Name, err)
		}
		payload, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zip: read entry %q: %w", f.Name, err)
		}
		items[f.Name] = payload
	}
	return items, nil
}
