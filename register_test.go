package scidata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapRegistry installs a copy of the codec registry for the duration of a
// test, so registrations do not leak into other tests.
func swapRegistry(t *testing.T) {
	t.Helper()
	old := codecs
	fresh := &codecTable{
		suffixes: make(map[string]Factory, len(old.suffixes)),
		kinds:    make(map[Kind]Factory, len(old.kinds)),
		guesses:  append([]Factory(nil), old.guesses...),
	}
	for k, v := range old.suffixes {
		fresh.suffixes[k] = v
	}
	for k, v := range old.kinds {
		fresh.kinds[k] = v
	}
	codecs = fresh
	t.Cleanup(func() { codecs = old })
}

func TestRegisterAlias(t *testing.T) {
	swapRegistry(t)

	require.NoError(t, Register("text", "txt"))
	c, err := newCodec("readme.text", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Value())
}

func TestRegisterAliasWithKind(t *testing.T) {
	swapRegistry(t)

	err := Register("text", "txt", KindText)
	var rerr *RegistrationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "text", rerr.Suffix)
}

func TestRegisterUnknownAlias(t *testing.T) {
	swapRegistry(t)

	var rerr *RegistrationError
	assert.ErrorAs(t, Register("text", "nosuch"), &rerr)
}

func TestRegisterNilFactory(t *testing.T) {
	swapRegistry(t)

	var rerr *RegistrationError
	assert.ErrorAs(t, Register("bad", Factory(nil)), &rerr)
	assert.ErrorAs(t, Register("bad", func() Codec { return nil }), &rerr)
	assert.ErrorAs(t, Register("bad", 42), &rerr)
}

func TestRegisterRecordKindNotDisplaced(t *testing.T) {
	swapRegistry(t)

	require.NoError(t, Register("fake", newTextCodec, KindRecord))

	// Records without a registered extension still dispatch to the JSON
	// codec.
	c, err := newCodec("data.unknown", Record{"a": 1})
	require.NoError(t, err)
	_, ok := c.(*jsonCodec)
	assert.True(t, ok)

	// The extension mapping of the new registration works as usual.
	c, err = newCodec("notes.fake", "some text")
	require.NoError(t, err)
	_, ok = c.(*textCodec)
	assert.True(t, ok)
}

func TestRegisterSuffixDotPrefix(t *testing.T) {
	swapRegistry(t)

	require.NoError(t, Register(".text", "txt"))
	_, err := newCodec("readme.text", "hello")
	assert.NoError(t, err)
}

func TestNewCodecGuessFallsBackToBinary(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02}
	c, err := newCodec("blob.raw", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, c.Value())
}

func TestNewCodecNoMatch(t *testing.T) {
	_, err := newCodec("data.unknown", struct{ X int }{1})
	var nerr *NoCodecError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "data.unknown", nerr.Path)
}

func TestNewCodecSuffixDecodesBytes(t *testing.T) {
	c, err := newCodec("data/parameter.json", []byte(`{"value": 1}`))
	require.NoError(t, err)
	r, ok := c.Value().(Record)
	require.True(t, ok)
	assert.Contains(t, r, "value")
}
