// Package scidata implements a container format for scientific datasets: a
// self-describing archive bundling heterogeneous data items together with two
// mandatory metadata records, content.json and meta.json, a deterministic
// content hash and a mutable/immutable lifecycle.
//
// # Items and codecs
//
// A container is a mapping from item paths (such as "data/parameter.json") to
// values. Every value is held by a codec, a strategy object responsible for
// serializing, deserializing and hashing that one item. Codecs are selected
// by file extension first, then by the kind of the native value, and finally,
// for raw byte payloads under unregistered extensions, by trying the list of
// registered codecs in registration order with raw binary as the terminal
// fallback.
//
// The built-in codecs cover the following item types:
//
//	.json <-> Record (map[string]any)
//	.txt  <-> string      (.log and .pgm are handled the same way)
//	.tsv  <-> [][]float64
//	.bin  <-> []byte
//
// Additional codecs register themselves when their package is imported,
// following the same pattern as the built-in ones:
//
//	import (
//		_ "github.com/scidatacontainer/scidata-go/codec/npycodec"
//		_ "github.com/scidatacontainer/scidata-go/codec/pngcodec"
//	)
//
// # Hashing
//
// Every codec produces a semantic hash: a SHA-256 digest over a canonical
// byte representation that is insensitive to incidental formatting
// differences such as JSON key order. The container hash is the SHA-256
// digest of the lexicographically ordered item hashes joined by single
// spaces, with the per-copy fields of content.json (uuid, created,
// storageTime, hash) excluded. Identical semantic content therefore yields an
// identical container hash regardless of the physical archive format.
//
// # Lifecycle
//
// A container is mutable after creation and becomes immutable once it is
// hashed, frozen, or written/loaded in a static or complete state. Immutable
// containers reject all item modifications; Release derives a fresh mutable
// container with a new uuid.
//
// # Archive formats
//
// The physical representation is delegated to archive drivers. The ZIP
// driver is always linked; the HDF5 driver lives in a separate cgo package
// and is linked by importing it:
//
//	import _ "github.com/scidatacontainer/scidata-go/archive/hdf5dc"
package scidata
