package scidata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

// hexDigest returns the hex-encoded SHA-256 digest of p.
func hexDigest(p []byte) string {
	return digest.FromBytes(p).Encoded()
}

// binaryCodec holds a raw byte string. It is the terminal fallback for item
// payloads no other codec accepts.
type binaryCodec struct {
	data []byte
}

func newBinaryCodec() Codec { return &binaryCodec{} }

func (c *binaryCodec) Encode() ([]byte, error) { return c.data, nil }

func (c *binaryCodec) Decode(data []byte) error {
	c.data = append([]byte(nil), data...)
	return nil
}

func (c *binaryCodec) Hash() (string, error) { return hexDigest(c.data), nil }

func (c *binaryCodec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *binaryCodec) Value() any { return c.data }

func (c *binaryCodec) SetValue(v any) error {
	data, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("binary codec cannot hold %T", v)
	}
	c.data = data
	return nil
}

// textCodec holds a UTF-8 string.
type textCodec struct {
	data string
}

func newTextCodec() Codec { return &textCodec{} }

func (c *textCodec) Encode() ([]byte, error) { return []byte(c.data), nil }

func (c *textCodec) Decode(data []byte) error {
	if !utf8.Valid(data) {
		return errors.New("text codec: payload is not valid UTF-8")
	}
	c.data = string(data)
	return nil
}

func (c *textCodec) Hash() (string, error) { return hexDigest([]byte(c.data)), nil }

func (c *textCodec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *textCodec) Value() any { return c.data }

func (c *textCodec) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("text codec cannot hold %T", v)
	}
	c.data = s
	return nil
}

// jsonCodec holds a Record. Encoding sorts object keys and indents with four
// spaces; the semantic hash is computed over the compact canonical rendering
// so that key order and whitespace never influence the digest.
//
// Decoded numbers are kept as json.Number to preserve their exact literal
// across a decode/hash round trip.
type jsonCodec struct {
	data Record
}

func newJSONCodec() Codec { return &jsonCodec{} }

func (c *jsonCodec) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c.data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *jsonCodec) Decode(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v Record
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("json codec: trailing data after document")
	}
	c.data = v
	return nil
}

func (c *jsonCodec) Hash() (string, error) {
	p, err := canonicalJSON(c.data)
	if err != nil {
		return "", err
	}
	return hexDigest(p), nil
}

// LegacyHash implements the model version 1.0.0 digest over the historical
// sorted rendering. Frozen; not extended to new value types.
func (c *jsonCodec) LegacyHash() (string, error) {
	return hexDigest([]byte(legacyRender(c.data))), nil
}

func (c *jsonCodec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *jsonCodec) Value() any { return c.data }

func (c *jsonCodec) SetValue(v any) error {
	r, ok := v.(Record)
	if !ok {
		return fmt.Errorf("json codec cannot hold %T", v)
	}
	c.data = r
	return nil
}

// canonicalJSON renders v as compact JSON with all object keys sorted and
// fixed "," / ":" separators, the canonical representation hashed by the
// current data model.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// legacyRender reproduces the first-generation canonical rendering: objects
// as "{key: value, ...}" with sorted bare keys, arrays as "[a, b]", None and
// True/False keywords, single-quoted strings.
func legacyRender(v any) string {
	switch vv := v.(type) {
	case Record:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + legacyRender(vv[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(vv))
		for i, e := range vv {
			parts[i] = legacyRender(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(vv))
		for i, e := range vv {
			parts[i] = legacyRepr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return legacyRepr(v)
	}
}

func legacyRepr(v any) string {
	switch vv := v.(type) {
	case nil:
		return "None"
	case bool:
		if vv {
			return "True"
		}
		return "False"
	case string:
		return legacyReprString(vv)
	case json.Number:
		s := vv.String()
		if !strings.ContainsAny(s, ".eE") {
			return s
		}
		f, err := vv.Float64()
		if err != nil {
			return s
		}
		return formatFloat(f)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return formatFloat(vv)
	}
	return fmt.Sprintf("%v", v)
}

func legacyReprString(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// formatFloat renders a float in the notation fixed by the first-generation
// hash: shortest round-trip decimal, a ".0" suffix for integral values,
// exponent notation outside [1e-4, 1e16).
func formatFloat(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e16 || abs < 1e-4 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// tsvCodec holds a two-dimensional numeric table encoded as newline and tab
// separated text.
type tsvCodec struct {
	data [][]float64
}

func newTSVCodec() Codec { return &tsvCodec{} }

func (c *tsvCodec) Encode() ([]byte, error) {
	rows := make([]string, len(c.data))
	for i, row := range c.data {
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = formatFloat(v)
		}
		rows[i] = strings.Join(fields, "\t")
	}
	return []byte(strings.Join(rows, "\n")), nil
}

func (c *tsvCodec) Decode(data []byte) error {
	lines := strings.Split(string(data), "\n")
	table := make([][]float64, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, "\t")
		row := make([]float64, len(fields))
		for j, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("tsv codec: row %d: %w", i, err)
			}
			row[j] = v
		}
		table[i] = row
	}
	c.data = table
	return nil
}

func (c *tsvCodec) Hash() (string, error) {
	p, err := c.Encode()
	if err != nil {
		return "", err
	}
	return hexDigest(p), nil
}

func (c *tsvCodec) EncodeStructured() ([]byte, error) { return c.Encode() }

func (c *tsvCodec) Value() any { return c.data }

func (c *tsvCodec) SetValue(v any) error {
	table, ok := v.([][]float64)
	if !ok {
		return fmt.Errorf("tsv codec cannot hold %T", v)
	}
	c.data = table
	return nil
}
