package scidata

import (
	"fmt"
	"reflect"
	"strings"
)

// codecTable holds the process-wide codec registrations. It is initialized
// once with the built-in codecs and is append-only afterwards. Concurrent
// registration is not synchronized; register codecs during init.
type codecTable struct {
	suffixes map[string]Factory
	kinds    map[Kind]Factory
	guesses  []Factory
}

var codecs = &codecTable{
	suffixes: make(map[string]Factory),
	kinds:    make(map[Kind]Factory),
}

func init() {
	MustRegister("bin", newBinaryCodec, KindBinary)
	MustRegister("json", newJSONCodec, KindRecord)
	MustRegister("txt", newTextCodec, KindText)
	MustRegister("log", newTextCodec)
	MustRegister("pgm", "txt")
	MustRegister("tsv", newTSVCodec, KindTabular)
}

// Register maps a file extension to a codec factory. The codec argument is
// either a Factory or a string naming an already registered suffix, in which
// case the new suffix becomes an alias for that suffix's codec and a kind
// argument is not allowed.
//
// An optional kind registers the codec for native-value dispatch as well.
// The last registration for a kind wins, except that the canonical
// record-to-JSON mapping may never be displaced. Every newly registered
// factory is appended to the guess list tried for byte payloads under
// unregistered extensions; the guess order is the first-registration order.
func Register(suffix string, codec any, kinds ...Kind) error {
	suffix = strings.TrimPrefix(suffix, ".")

	var factory Factory
	switch cv := codec.(type) {
	case string:
		if len(kinds) > 0 {
			return &RegistrationError{Suffix: suffix, Reason: fmt.Sprintf("alias of %q must not carry a value kind", cv)}
		}
		alias := strings.TrimPrefix(cv, ".")
		f, ok := codecs.suffixes[alias]
		if !ok {
			return &RegistrationError{Suffix: suffix, Reason: fmt.Sprintf("alias of unregistered suffix %q", cv)}
		}
		codecs.suffixes[suffix] = f
		return nil
	case Factory:
		factory = cv
	case func() Codec:
		factory = cv
	default:
		return &RegistrationError{Suffix: suffix, Reason: fmt.Sprintf("codec argument must be a Factory or an alias suffix, got %T", codec)}
	}

	if factory == nil {
		return &RegistrationError{Suffix: suffix, Reason: "nil codec factory"}
	}
	if factory() == nil {
		return &RegistrationError{Suffix: suffix, Reason: "factory returned a nil codec"}
	}

	codecs.suffixes[suffix] = factory

	for _, k := range kinds {
		if k == KindNone {
			return &RegistrationError{Suffix: suffix, Reason: "cannot register the none kind"}
		}
		// The canonical record-to-JSON mapping is fixed.
		if k == KindRecord {
			if _, ok := codecs.kinds[KindRecord]; ok {
				continue
			}
		}
		codecs.kinds[k] = factory
	}

	if !codecs.guessed(factory) {
		codecs.guesses = append(codecs.guesses, factory)
	}
	return nil
}

// MustRegister is like Register but panics on failure. It is intended for
// registration from package init functions.
func MustRegister(suffix string, codec any, kinds ...Kind) {
	if err := Register(suffix, codec, kinds...); err != nil {
		panic(fmt.Sprintf("scidata: %v", err))
	}
}

func (t *codecTable) guessed(f Factory) bool {
	fp := reflect.ValueOf(f).Pointer()
	for _, g := range t.guesses {
		if reflect.ValueOf(g).Pointer() == fp {
			return true
		}
	}
	return false
}

// suffixOf returns the registration suffix of an item path: everything after
// the final dot of the final path element.
func suffixOf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return ""
}

// newCodec dispatches an item value to a codec instance. Extension
// registrations take precedence; byte payloads under unregistered
// extensions fall back to the guess list in registration order and finally
// to the raw binary codec; any other value dispatches on its kind.
func newCodec(path string, value any) (Codec, error) {
	if f, ok := codecs.suffixes[suffixOf(path)]; ok {
		c := f()
		if err := fill(c, value); err != nil {
			return nil, fmt.Errorf("item %q: %w", path, err)
		}
		return c, nil
	}

	if data, ok := value.([]byte); ok {
		for _, f := range codecs.guesses {
			c := f()
			if err := c.Decode(data); err == nil {
				return c, nil
			}
		}
		c := newBinaryCodec()
		if err := c.Decode(data); err != nil {
			return nil, fmt.Errorf("item %q: %w", path, err)
		}
		return c, nil
	}

	kind := KindOf(value)
	if f, ok := codecs.kinds[kind]; ok && kind != KindNone {
		c := f()
		if err := c.SetValue(value); err != nil {
			return nil, fmt.Errorf("item %q: %w", path, err)
		}
		return c, nil
	}
	return nil, &NoCodecError{Path: path, Kind: kind}
}

// fill initializes a fresh codec from a native value or, for byte payloads,
// from the encoded representation.
func fill(c Codec, value any) error {
	if data, ok := value.([]byte); ok {
		// Byte payloads are the encoded form, except for the binary
		// codec whose native value already is a byte string.
		if err := c.SetValue(data); err == nil {
			return nil
		}
		return c.Decode(data)
	}
	return c.SetValue(value)
}
