// Package hdf5dc provides the HDF5 archive driver on top of the gonum HDF5
// bindings. Importing the package registers the driver:
//
//	import _ "github.com/scidatacontainer/scidata-go/archive/hdf5dc"
//
// Item paths map to HDF5 groups; the final dot of an item name is replaced
// by an underscore so that "data/parameter.json" becomes the dataset
// "parameter_json" inside the group "data". Payloads are stored as
// one-dimensional uint8 datasets.
//
// The bindings operate on files, not byte streams, so encoding and decoding
// bridge through a temporary file.
package hdf5dc

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/hdf5"

	"github.com/scidatacontainer/scidata-go/archive"
)

func init() {
	archive.Register(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return archive.FormatHDF5 }

func (d *driver) Structured() bool { return true }

func (d *driver) EncodeTo(w io.Writer, items map[string][]byte, opts archive.Options) error {
	tmp, err := os.CreateTemp("", "scidata-*.h5")
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := writeFile(name, items); err != nil {
		return err
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeFile(name string, items map[string][]byte) error {
	f, err := hdf5.CreateFile(name, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("hdf5: create file: %w", err)
	}
	defer f.Close()

	for _, path := range archive.SortedPaths(items) {
		if err := writeItem(f, path, items[path]); err != nil {
			return err
		}
	}
	return nil
}

func writeItem(f *hdf5.File, path string, payload []byte) error {
	fg := &f.CommonFG
	parts := strings.Split(path, "/")
	for _, dir := range parts[:len(parts)-1] {
		g, err := fg.OpenGroup(dir)
		if err != nil {
			if g, err = fg.CreateGroup(dir); err != nil {
				return fmt.Errorf("hdf5: create group %q: %w", dir, err)
			}
		}
		defer g.Close()
		fg = &g.CommonFG
	}

	dims := []uint{uint(len(payload))}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("hdf5: dataspace for %q: %w", path, err)
	}
	defer space.Close()

	dset, err := fg.CreateDataset(mangle(parts[len(parts)-1]), hdf5.T_NATIVE_UINT8, space)
	if err != nil {
		return fmt.Errorf("hdf5: create dataset %q: %w", path, err)
	}
	defer dset.Close()

	if len(payload) == 0 {
		return nil
	}
	if err := dset.Write(&payload); err != nil {
		return fmt.Errorf("hdf5: write dataset %q: %w", path, err)
	}
	return nil
}

func (d *driver) Decode(data []byte, skip func(path string) bool) (map[string][]byte, error) {
	tmp, err := os.CreateTemp("", "scidata-*.h5")
	if err != nil {
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("hdf5: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("hdf5: %w", err)
	}

	f, err := hdf5.OpenFile(name, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("hdf5: open file: %w", err)
	}
	defer f.Close()

	items := make(map[string][]byte)
	if err := walk(&f.CommonFG, "", skip, items); err != nil {
		return nil, err
	}
	return items, nil
}

func walk(fg *hdf5.CommonFG, prefix string, skip func(path string) bool, items map[string][]byte) error {
	n, err := fg.NumObjects()
	if err != nil {
		return fmt.Errorf("hdf5: %w", err)
	}
	names := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := fg.ObjectNameByIndex(i)
		if err != nil {
			return fmt.Errorf("hdf5: %w", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if g, err := fg.OpenGroup(name); err == nil {
			err := walk(&g.CommonFG, prefix+name+"/", skip, items)
			g.Close()
			if err != nil {
				return err
			}
			continue
		}

		path := prefix + demangle(name)
		if skip != nil && skip(path) {
			continue
		}
		payload, err := readDataset(fg, name)
		if err != nil {
			return fmt.Errorf("hdf5: read dataset %q: %w", path, err)
		}
		items[path] = payload
	}
	return nil
}

func readDataset(fg *hdf5.CommonFG, name string) ([]byte, error) {
	dset, err := fg.OpenDataset(name)
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
	size := uint(1)
	for _, d := range dims {
		size *= d
	}
	if size == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, size)
	if err := dset.Read(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// mangle replaces the final dot of an item name by an underscore, the HDF5
// dataset naming convention of the container format.
func mangle(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i] + "_" + name[i+1:]
	}
	return name
}

func demangle(name string) string {
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[:i] + "." + name[i+1:]
	}
	return name
}
