package scidata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHashIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a := newJSONCodec()
	require.NoError(t, a.Decode([]byte(`{"alpha": 1, "beta": {"x": 2.5, "y": "s"}}`)))

	b := newJSONCodec()
	require.NoError(t, b.Decode([]byte("{\"beta\":{\"y\":\"s\",\"x\":2.5},\n  \"alpha\":1}")))

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestJSONHashGenerationsDiffer(t *testing.T) {
	c := newJSONCodec()
	require.NoError(t, c.Decode([]byte(`{"alpha": 1, "flag": true}`)))

	current, err := c.Hash()
	require.NoError(t, err)
	legacy, err := c.(LegacyHasher).LegacyHash()
	require.NoError(t, err)
	assert.NotEqual(t, current, legacy)
}

func TestJSONEncodeIndented(t *testing.T) {
	c := newJSONCodec()
	require.NoError(t, c.SetValue(Record{"key": "value"}))
	data, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"key\": \"value\"\n}", string(data))
}

func TestJSONDecodeTrailingData(t *testing.T) {
	c := newJSONCodec()
	assert.Error(t, c.Decode([]byte(`{"a": 1} {"b": 2}`)))
}

func TestLegacyRender(t *testing.T) {
	r := Record{
		"none":  nil,
		"flag":  true,
		"off":   false,
		"text":  "it's",
		"list":  []any{1.0, "a"},
		"inner": Record{"b": 2},
	}
	got := legacyRender(r)
	assert.Equal(t, `{flag: True, inner: {b: 2}, list: [1.0, 'a'], none: None, off: False, text: "it's"}`, got)
}

func TestFormatFloat(t *testing.T) {
	for in, want := range map[float64]string{
		1:       "1.0",
		-3:      "-3.0",
		0:       "0.0",
		0.5:     "0.5",
		0.0001:  "0.0001",
		0.00001: "1e-05",
		1e16:    "1e+16",
		12345.5: "12345.5",
	} {
		assert.Equal(t, want, formatFloat(in), "formatFloat(%v)", in)
	}
}

func TestTSVRoundTrip(t *testing.T) {
	table := [][]float64{{1, 2.5, -3}, {0, 0.0001, 1e16}}
	c := newTSVCodec()
	require.NoError(t, c.SetValue(table))

	data, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, "1.0\t2.5\t-3.0\n0.0\t0.0001\t1e+16", string(data))

	d := newTSVCodec()
	require.NoError(t, d.Decode(data))
	assert.Equal(t, table, d.Value())

	hc, err := c.Hash()
	require.NoError(t, err)
	hd, err := d.Hash()
	require.NoError(t, err)
	assert.Equal(t, hc, hd)
}

func TestTSVDecodeRejectsText(t *testing.T) {
	c := newTSVCodec()
	assert.Error(t, c.Decode([]byte("1.0\tnot-a-number")))
}

func TestTextCodecRejectsInvalidUTF8(t *testing.T) {
	c := newTextCodec()
	assert.Error(t, c.Decode([]byte{0xff, 0xfe}))
	require.NoError(t, c.Decode([]byte("plain text")))
	assert.Equal(t, "plain text", c.Value())
}

func TestBinaryCodecRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xff}
	c := newBinaryCodec()
	require.NoError(t, c.Decode(payload))
	data, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	h, err := c.Hash()
	require.NoError(t, err)
	assert.Len(t, h, 64)
	assert.False(t, strings.ContainsAny(h, "ABCDEF"))
}
