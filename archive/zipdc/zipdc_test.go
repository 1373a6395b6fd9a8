package zipdc

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scidatacontainer/scidata-go/archive"
)

func sampleItems() map[string][]byte {
	return map[string][]byte{
		"content.json":   []byte(`{"uuid": "x"}`),
		"meta.json":      []byte(`{"title": "t"}`),
		"data/blob.bin":  {0x00, 0x01, 0x02},
		"data/empty.bin": {},
	}
}

func TestRoundTrip(t *testing.T) {
	drv, err := archive.Get(archive.FormatZip)
	require.NoError(t, err)

	data, err := archive.Encode(drv, sampleItems(), archive.Options{
		Method: archive.Deflate,
		Level:  archive.DefaultLevel,
	})
	require.NoError(t, err)

	format, err := archive.Detect(data)
	require.NoError(t, err)
	assert.Equal(t, archive.FormatZip, format)

	items, err := drv.Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, sampleItems(), items)
}

func TestStoreMethod(t *testing.T) {
	drv, err := archive.Get(archive.FormatZip)
	require.NoError(t, err)

	data, err := archive.Encode(drv, sampleItems(), archive.Options{Method: archive.Store})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method, f.Name)
	}
}

func TestEntryOrder(t *testing.T) {
	drv, err := archive.Get(archive.FormatZip)
	require.NoError(t, err)

	data, err := archive.Encode(drv, sampleItems(), archive.Options{Method: archive.Deflate, Level: 6})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"content.json", "data/blob.bin", "data/empty.bin", "meta.json"}, names)
}

func TestDecodeSkip(t *testing.T) {
	drv, err := archive.Get(archive.FormatZip)
	require.NoError(t, err)

	data, err := archive.Encode(drv, sampleItems(), archive.Options{Method: archive.Deflate, Level: archive.DefaultLevel})
	require.NoError(t, err)

	items, err := drv.Decode(data, func(path string) bool { return path == "data/blob.bin" })
	require.NoError(t, err)
	assert.NotContains(t, items, "data/blob.bin")
	assert.Contains(t, items, "content.json")
}

func TestDecodeGarbage(t *testing.T) {
	drv, err := archive.Get(archive.FormatZip)
	require.NoError(t, err)
	_, err = drv.Decode([]byte("not a zip archive"), nil)
	assert.Error(t, err)
}
