package hdf5dc_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scidata "github.com/scidatacontainer/scidata-go"
	"github.com/scidatacontainer/scidata-go/archive"
	"github.com/scidatacontainer/scidata-go/config"

	_ "github.com/scidatacontainer/scidata-go/archive/hdf5dc"
)

func TestDriverRoundTrip(t *testing.T) {
	drv, err := archive.Get(archive.FormatHDF5)
	require.NoError(t, err)
	assert.True(t, drv.Structured())

	items := map[string][]byte{
		"content.json":        []byte(`{"uuid": "x"}`),
		"meta.json":           []byte(`{"title": "t"}`),
		"data/parameter.json": []byte(`{"gain": 1}`),
		"data/empty.bin":      {},
	}
	data, err := archive.Encode(drv, items, archive.Options{})
	require.NoError(t, err)

	format, err := archive.Detect(data)
	require.NoError(t, err)
	assert.Equal(t, archive.FormatHDF5, format)

	decoded, err := drv.Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestDriverSkip(t *testing.T) {
	drv, err := archive.Get(archive.FormatHDF5)
	require.NoError(t, err)

	items := map[string][]byte{
		"content.json": []byte(`{}`),
		"meta.json":    []byte(`{}`),
		"big.bin":      make([]byte, 4096),
	}
	data, err := archive.Encode(drv, items, archive.Options{})
	require.NoError(t, err)

	decoded, err := drv.Decode(data, func(path string) bool { return path == "big.bin" })
	require.NoError(t, err)
	assert.NotContains(t, decoded, "big.bin")
	assert.Contains(t, decoded, "meta.json")
}

func testConfig() *config.Config {
	return &config.Config{Author: "John Doe", Email: "john@example.com"}
}

func sampleItems() map[string]any {
	return map[string]any{
		"content.json": map[string]any{
			"containerType": map[string]any{"name": "myImage"},
		},
		"meta.json": map[string]any{
			"title": "This is a sample image dataset",
		},
		"meas/image.tsv": [][]float64{{1, 2}, {3, 4}},
	}
}

func TestContainerHashIndependentOfFormat(t *testing.T) {
	zdc, err := scidata.New(sampleItems(), scidata.WithConfig(testConfig()))
	require.NoError(t, err)
	hz, err := zdc.Hash()
	require.NoError(t, err)

	hdc, err := scidata.New(sampleItems(), scidata.WithConfig(testConfig()),
		scidata.WithFormat(archive.FormatHDF5))
	require.NoError(t, err)
	hh, err := hdc.Hash()
	require.NoError(t, err)

	assert.Equal(t, hz, hh)
}

func TestContainerFileRoundTrip(t *testing.T) {
	dc, err := scidata.New(sampleItems(), scidata.WithConfig(testConfig()),
		scidata.WithFormat(archive.FormatHDF5))
	require.NoError(t, err)
	require.NoError(t, dc.Freeze())

	name := filepath.Join(t.TempDir(), "sample.h5")
	require.NoError(t, dc.WriteFile(name))

	dc2, err := scidata.ReadFile(name, scidata.WithConfig(testConfig()))
	require.NoError(t, err)
	assert.Equal(t, archive.FormatHDF5, dc2.Format())
	assert.Equal(t, dc.UUID(), dc2.UUID())
	assert.Equal(t, dc.Keys(), dc2.Keys())

	v, err := dc2.Get("meas/image.tsv")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, v)
}
