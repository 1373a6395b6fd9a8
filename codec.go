package scidata

import (
	"image"
	"time"
)

// ModelVersion is the version of the data model implemented by this package.
const ModelVersion = "1.1.0"

// modelVersionLegacy marks records written by the first generation of the
// data model. Their hashes are verified with the frozen legacy JSON
// canonicalization; the legacy algorithm is not extended to new value types.
const modelVersionLegacy = "1.0.0"

// Record is the native value type of JSON items such as content.json and
// meta.json. Nested values stay within the JSON domain: nil, bool, string,
// json.Number, float64, int, []any and Record.
type Record = map[string]any

// Timestamp returns the current UTC time as an ISO 8601 string with second
// resolution, the format used by the created and storageTime attributes.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05-07:00")
}

// Kind identifies the native value family a codec can hold. Dispatch by
// native type uses this finite, explicit tag set instead of runtime type
// introspection.
type Kind int

const (
	KindNone Kind = iota
	KindBinary
	KindText
	KindRecord
	KindTabular
	KindArray
	KindImage
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindText:
		return "text"
	case KindRecord:
		return "record"
	case KindTabular:
		return "tabular"
	case KindArray:
		return "array"
	case KindImage:
		return "image"
	case KindGeneric:
		return "generic"
	}
	return "none"
}

// Kinder lets value types defined outside this package declare their kind,
// so that extension codecs can participate in native-value dispatch without
// a reflect-based type registry.
type Kinder interface {
	DataKind() Kind
}

// KindOf resolves the kind of a native value. Values of unknown types that
// do not implement Kinder resolve to KindNone.
func KindOf(v any) Kind {
	switch v.(type) {
	case []byte:
		return KindBinary
	case string:
		return KindText
	case Record:
		return KindRecord
	case [][]float64:
		return KindTabular
	case image.Image:
		return KindImage
	}
	if k, ok := v.(Kinder); ok {
		return k.DataKind()
	}
	return KindNone
}

// Codec converts one item's native value to and from its byte
// representation and produces the item's semantic hash.
//
// Decode must be the left inverse of Encode: decoding encoded output yields
// a semantically, not necessarily byte-wise, equal value. Hash must return
// the same digest for semantically equal values regardless of incidental
// representation differences, so that independent implementations hash
// identical content identically.
type Codec interface {
	// Encode returns the deterministic byte serialization of the held
	// value.
	Encode() ([]byte, error)

	// Decode reconstructs the held value from its byte serialization.
	Decode(data []byte) error

	// Hash returns the hex-encoded SHA-256 digest of the canonical byte
	// representation of the held value.
	Hash() (string, error)

	// Value returns the held native value.
	Value() any

	// SetValue replaces the held value. It fails if the value's type is
	// not supported by this codec.
	SetValue(v any) error
}

// StructuredCodec is the capability interface for codecs that can represent
// their value inside a structured (HDF5-like) archive. The container queries
// this capability before dispatch; encoding to a structured format fails
// with a NotSupportedError for codecs that do not implement it.
type StructuredCodec interface {
	Codec

	// EncodeStructured returns the byte representation stored inside a
	// structured archive. For most codecs this is the generic encoding.
	EncodeStructured() ([]byte, error)
}

// LegacyHasher is the capability interface for codecs whose semantic hash
// changed between data model generations. Containers stamped with model
// version 1.0.0 are hashed through LegacyHash.
type LegacyHasher interface {
	LegacyHash() (string, error)
}

// Factory creates a fresh, empty codec instance.
type Factory func() Codec
