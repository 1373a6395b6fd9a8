package scidata

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStream(t *testing.T) {
	dc := newSample(t)
	r := dc.EncodeStream()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.False(t, dc.Mutable(), "complete container is immutable after streaming")

	dc2, err := Load(data, WithConfig(testConfig()))
	require.NoError(t, err)
	assert.Equal(t, dc.UUID(), dc2.UUID())
	assert.Equal(t, dc.Keys(), dc2.Keys())
}

func TestEncodeStreamSmallReads(t *testing.T) {
	dc := newSample(t)
	r := dc.EncodeStream()
	defer r.Close()
	var streamed []byte
	buf := make([]byte, 7)
	for {
		n, err := r.Read(buf)
		streamed = append(streamed, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	dc2, err := Load(streamed, WithConfig(testConfig()))
	require.NoError(t, err)
	assert.Equal(t, dc.UUID(), dc2.UUID())
}

func TestEncodeStreamEarlyClose(t *testing.T) {
	dc := newSample(t)
	r := dc.EncodeStream()
	buf := make([]byte, 16)
	_, err := r.Read(buf)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close(), "closing twice is harmless")
}

func TestEncodeStreamError(t *testing.T) {
	dc := newSample(t)
	require.NoError(t, dc.Freeze())
	data, err := dc.Encode()
	require.NoError(t, err)
	partial, err := Load(data, WithConfig(testConfig()), WithSkipItems("meas/image.tsv"))
	require.NoError(t, err)

	r := partial.EncodeStream()
	defer r.Close()
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrPartial)
}
