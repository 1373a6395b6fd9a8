package scidata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/scidatacontainer/scidata-go/archive"
	_ "github.com/scidatacontainer/scidata-go/archive/zipdc"
	"github.com/scidatacontainer/scidata-go/client"
	"github.com/scidatacontainer/scidata-go/config"
)

// Container is the aggregate of a scientific dataset: a mapping of item
// paths to codec-held values, the two distinguished metadata records
// content.json and meta.json, a mutability flag and the physical archive
// format.
//
// A Container is not safe for concurrent mutation; callers coordinate
// access externally.
type Container struct {
	items   map[string]Codec
	skipped map[string]struct{}
	mutable bool
	format  string

	cfg    *config.Config
	comp   archive.Options
	server string
	key    string
	httpc  *http.Client
}

// Option configures a container at construction time. Explicit options take
// precedence over the injected configuration, which takes precedence over
// environment defaults.
type Option func(*Container)

// WithConfig injects resolved identity and server settings, bypassing the
// default file and environment resolution.
func WithConfig(cfg *config.Config) Option {
	return func(c *Container) { c.cfg = cfg }
}

// WithFormat selects the archive format for a new container. Loading
// replaces it by the detected format of the archive bytes.
func WithFormat(format string) Option {
	return func(c *Container) { c.format = format }
}

// WithCompression sets the compression method and level passed through to
// the archive driver.
func WithCompression(method uint16, level int) Option {
	return func(c *Container) { c.comp = archive.Options{Method: method, Level: level} }
}

// WithServer overrides the catalog server URL from the configuration.
func WithServer(url string) Option {
	return func(c *Container) { c.server = url }
}

// WithAPIKey overrides the catalog API key from the configuration.
func WithAPIKey(key string) Option {
	return func(c *Container) { c.key = key }
}

// WithHTTPClient replaces the HTTP client used for catalog calls.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Container) { c.httpc = httpc }
}

// WithSkipItems excludes the named item paths while loading an archive. The
// values of skipped items are permanently inaccessible for this instance,
// and the instance can never be made mutable again.
func WithSkipItems(paths ...string) Option {
	return func(c *Container) {
		for _, p := range paths {
			c.skipped[p] = struct{}{}
		}
	}
}

func newEmpty(opts ...Option) (*Container, error) {
	c := &Container{
		items:   make(map[string]Codec),
		skipped: make(map[string]struct{}),
		mutable: true,
		format:  archive.FormatZip,
		comp:    archive.Options{Method: archive.Deflate, Level: archive.DefaultLevel},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
	}
	return c, nil
}

// New builds a container from a mapping of item paths to native values. The
// mapping must include content.json and meta.json; both records are
// validated and completed. A static record without a hash is hashed, and
// the resulting container starts immutable iff the record is static.
func New(items map[string]any, opts ...Option) (*Container, error) {
	c, err := newEmpty(opts...)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return nil, ErrNoData
	}
	if err := c.store(items, true, false); err != nil {
		return nil, err
	}
	c.mutable = !c.Static()
	c.normORCID()
	return c, nil
}

// Load builds a container from encoded archive bytes. The format is
// detected from the magic bytes; items are taken as stored, and a
// pre-existing hash is strictly verified by recomputing it.
func Load(data []byte, opts ...Option) (*Container, error) {
	c, err := newEmpty(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.decode(data, false, true); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadFile loads a container from an archive file.
func ReadFile(name string, opts ...Option) (*Container, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Load(data, opts...)
}

// Download fetches a container from the catalog server by uuid. A replaced
// dataset is transparently substituted by its replacement.
func Download(ctx context.Context, id string, opts ...Option) (*Container, error) {
	c, err := newEmpty(opts...)
	if err != nil {
		return nil, err
	}
	server, key, err := c.serverAndKey()
	if err != nil {
		return nil, err
	}
	data, replaced, err := client.New(server, key, c.httpc).Download(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.decode(data, replaced, true); err != nil {
		return nil, err
	}
	return c, nil
}

// store dispatches all items to codecs, requires the two metadata records,
// optionally validates them, hashes a static record lacking a hash and, in
// strict mode, verifies a pre-existing hash.
func (c *Container) store(items map[string]any, validate, strict bool) error {
	c.items = make(map[string]Codec, len(items))
	restore := c.mutable
	c.mutable = true
	defer func() { c.mutable = restore }()

	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := c.Set(p, items[p]); err != nil {
			return err
		}
	}

	if _, ok := c.items["content.json"]; !ok {
		return &ValidationError{Item: "content.json", Reason: "item is missing"}
	}
	if _, ok := c.items["meta.json"]; !ok {
		return &ValidationError{Item: "meta.json", Reason: "item is missing"}
	}
	if validate {
		if err := c.validateContent(); err != nil {
			return err
		}
		if err := c.validateMeta(); err != nil {
			return err
		}
	}

	content := c.content()
	if truthy(content["static"]) && !truthy(content["hash"]) {
		if _, err := c.Hash(); err != nil {
			return err
		}
	}

	if strict && truthy(content["hash"]) && len(c.skipped) == 0 {
		stored, _ := content["hash"].(string)
		computed, err := c.computeHash()
		if err != nil {
			return err
		}
		if computed != stored {
			return fmt.Errorf("item content.json: %w", ErrWrongHash)
		}
	}
	return nil
}

// decode parses archive bytes into this container and settles the
// mutability state from the loaded record.
func (c *Container) decode(data []byte, validate, strict bool) error {
	format, err := archive.Detect(data)
	if err != nil {
		return err
	}
	c.format = format

	drv, err := archive.Get(format)
	if err != nil {
		return err
	}
	var skip func(string) bool
	if len(c.skipped) > 0 {
		skip = func(path string) bool {
			_, ok := c.skipped[path]
			return ok
		}
	}
	blobs, err := drv.Decode(data, skip)
	if err != nil {
		return err
	}

	items := make(map[string]any, len(blobs))
	for p, b := range blobs {
		items[p] = b
	}
	if err := c.store(items, validate, strict); err != nil {
		return err
	}
	c.settle()
	c.normORCID()
	if len(c.skipped) > 0 && c.mutable {
		return fmt.Errorf("partial loading is only supported for immutable containers: %w", ErrPartial)
	}
	return nil
}

// settle derives the mutability flag from the loaded or written record:
// static and complete records are immutable.
func (c *Container) settle() {
	content := c.content()
	c.mutable = !(truthy(content["static"]) || truthy(content["complete"]))
}

// Set stores a native value as the item at path, dispatching it to a codec
// through the registry. Byte payloads are decoded as the item's encoded
// representation.
func (c *Container) Set(path string, value any) error {
	if !c.mutable {
		return fmt.Errorf("item %q: %w", path, ErrImmutable)
	}
	codec, err := newCodec(path, value)
	if err != nil {
		return err
	}
	c.items[path] = codec
	return nil
}

// Get returns the native value of the item at path.
func (c *Container) Get(path string) (any, error) {
	if _, ok := c.skipped[path]; ok {
		return nil, &NotLoadedError{Path: path}
	}
	codec, ok := c.items[path]
	if !ok {
		return nil, &UnknownItemError{Path: path}
	}
	return codec.Value(), nil
}

// Delete removes the item at path. The two reserved metadata records cannot
// be deleted; deleting an absent item is a no-op.
func (c *Container) Delete(path string) error {
	if !c.mutable {
		return fmt.Errorf("item %q: %w", path, ErrImmutable)
	}
	if path == "content.json" || path == "meta.json" {
		return &ValidationError{Item: path, Reason: "item is reserved and cannot be deleted"}
	}
	delete(c.items, path)
	return nil
}

// Has reports whether the container holds an item at path.
func (c *Container) Has(path string) bool {
	_, ok := c.items[path]
	return ok
}

// Keys returns the paths of all materialized items in lexicographic order.
func (c *Container) Keys() []string {
	paths := make([]string, 0, len(c.items))
	for p := range c.items {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Content returns the content.json record. The record is live: mutating it
// mutates the container item.
func (c *Container) Content() Record { return c.content() }

// Meta returns the meta.json record. The record is live: mutating it
// mutates the container item.
func (c *Container) Meta() Record { return c.meta() }

func (c *Container) content() Record {
	if codec, ok := c.items["content.json"]; ok {
		if r, ok := codec.Value().(Record); ok {
			return r
		}
	}
	return nil
}

func (c *Container) meta() Record {
	if codec, ok := c.items["meta.json"]; ok {
		if r, ok := codec.Value().(Record); ok {
			return r
		}
	}
	return nil
}

// UUID returns the container's uuid.
func (c *Container) UUID() string { return cstr(c.content()["uuid"]) }

// Static reports whether the record is static: finalized, hash-verified and
// never mutable again.
func (c *Container) Static() bool { return truthy(c.content()["static"]) }

// Complete reports whether the record is complete for now.
func (c *Container) Complete() bool { return truthy(c.content()["complete"]) }

// Mutable reports whether items may currently be modified.
func (c *Container) Mutable() bool { return c.mutable }

// Format returns the active archive format name.
func (c *Container) Format() string { return c.format }

// SetFormat switches the archive format used by subsequent writes. The
// format must name a linked archive driver.
func (c *Container) SetFormat(format string) error {
	if _, err := archive.Get(format); err != nil {
		return err
	}
	c.format = format
	return nil
}

// computeHash implements the canonical container hash: the per-copy fields
// of content.json (uuid, created, storageTime, hash) are nulled, every
// item's semantic hash is computed in lexicographic path order, and the
// digests joined by single spaces are hashed once more. Records stamped
// with the legacy model version hash their JSON items through the frozen
// legacy canonicalization.
func (c *Container) computeHash() (string, error) {
	if len(c.skipped) > 0 {
		return "", fmt.Errorf("cannot hash: %w", ErrPartial)
	}
	content := c.content()

	excluded := []string{"uuid", "created", "storageTime", "hash"}
	saved := make(map[string]any, len(excluded))
	for _, k := range excluded {
		saved[k] = content[k]
		content[k] = nil
	}
	defer func() {
		for k, v := range saved {
			content[k] = v
		}
	}()

	legacy := cstr(content["modelVersion"]) == modelVersionLegacy
	hashes := make([]string, 0, len(c.items))
	for _, p := range c.Keys() {
		codec := c.items[p]
		var h string
		var err error
		if lh, ok := codec.(LegacyHasher); ok && legacy {
			h, err = lh.LegacyHash()
		} else {
			h, err = codec.Hash()
		}
		if err != nil {
			return "", fmt.Errorf("item %q: %w", p, err)
		}
		hashes = append(hashes, h)
	}
	return hexDigest([]byte(strings.Join(hashes, " "))), nil
}

// Hash computes the canonical container hash, stores it in content.json,
// refreshes storageTime and makes the container immutable.
func (c *Container) Hash() (string, error) {
	h, err := c.computeHash()
	if err != nil {
		return "", err
	}
	content := c.content()
	content["hash"] = h
	c.mutable = false
	content["storageTime"] = Timestamp()
	return h, nil
}

// Freeze marks the record static and complete and hashes the container.
// A frozen container cannot be modified any more.
func (c *Container) Freeze() error {
	content := c.content()
	content["static"] = true
	content["complete"] = true
	_, err := c.Hash()
	return err
}

// Release makes an immutable container mutable again as a new dataset: the
// uuid, replaces, created, storageTime and hash attributes are stripped,
// the record is marked non-static and complete, and re-validation assigns a
// fresh uuid and creation time. Releasing a mutable container is a no-op.
func (c *Container) Release() error {
	if c.mutable {
		return nil
	}
	if len(c.skipped) > 0 {
		return fmt.Errorf("modifying a partially read container is not supported: %w", ErrPartial)
	}
	c.mutable = true
	content := c.content()
	content["static"] = false
	content["complete"] = true
	for _, k := range []string{"uuid", "replaces", "created", "storageTime", "hash"} {
		delete(content, k)
	}
	return c.validateContent()
}

// Encode serializes the container through the active archive driver.
func (c *Container) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encodeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Container) encodeTo(w io.Writer) error {
	if len(c.skipped) > 0 {
		return fmt.Errorf("cannot encode: %w", ErrPartial)
	}
	c.normORCID()

	drv, err := archive.Get(c.format)
	if err != nil {
		return err
	}

	blobs := make(map[string][]byte, len(c.items))
	for p, codec := range c.items {
		var payload []byte
		if drv.Structured() {
			sc, ok := codec.(StructuredCodec)
			if !ok {
				return &NotSupportedError{Path: p, Format: c.format}
			}
			payload, err = sc.EncodeStructured()
		} else {
			payload, err = codec.Encode()
		}
		if err != nil {
			return fmt.Errorf("item %q: %w", p, err)
		}
		blobs[p] = payload
	}
	return drv.EncodeTo(w, blobs, c.comp)
}

// Write serializes the container to w. A mutable container's storageTime is
// refreshed first; after a successful write of a static or complete record
// the container is immutable, mirroring the load behavior for round-trip
// symmetry.
func (c *Container) Write(w io.Writer) error {
	if c.mutable {
		c.content()["storageTime"] = Timestamp()
	}
	if err := c.encodeTo(w); err != nil {
		return err
	}
	c.settle()
	return nil
}

// WriteFile writes the container to an archive file.
func (c *Container) WriteFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Upload encodes the container and posts it to the catalog server. When the
// upload of a static container is rejected because the server already holds
// a static copy, that copy is downloaded into this container instead.
func (c *Container) Upload(ctx context.Context) error {
	server, key, err := c.serverAndKey()
	if err != nil {
		return err
	}
	if c.mutable {
		c.content()["storageTime"] = Timestamp()
	}
	data, err := c.Encode()
	if err != nil {
		return err
	}

	cl := client.New(server, key, c.httpc)
	err = cl.Upload(ctx, data)
	var invalid *client.InvalidContentError
	if errors.As(err, &invalid) {
		if c.Static() && invalid.Static && invalid.Replacement != "" {
			data, replaced, derr := cl.Download(ctx, invalid.Replacement)
			if derr != nil {
				return derr
			}
			return c.decode(data, replaced, true)
		}
		return err
	}
	if err != nil {
		return err
	}
	c.settle()
	return nil
}

func (c *Container) serverAndKey() (string, string, error) {
	server := c.server
	if server == "" {
		server = c.cfg.Server
	}
	if server == "" {
		return "", "", errors.New("server URL is missing")
	}
	key := c.key
	if key == "" {
		key = c.cfg.Key
	}
	if key == "" {
		return "", "", errors.New("server API key is missing")
	}
	return server, key, nil
}

// normORCID replaces the author ORCID in meta.json by its normalized form,
// degrading invalid identifiers to the empty string.
func (c *Container) normORCID() {
	meta := c.meta()
	if meta == nil {
		return
	}
	if orcid, ok := meta["orcid"]; ok {
		meta["orcid"] = NormalizeORCID(cstr(orcid))
	}
}

// String returns a human-readable summary of the container.
func (c *Container) String() string {
	content := c.content()
	meta := c.meta()

	var kind string
	switch {
	case truthy(content["static"]):
		kind = "Static Container"
	case truthy(content["complete"]):
		kind = "Complete Container"
	default:
		kind = "Incomplete Container"
	}

	lines := []string{kind}
	name := ""
	if ct, ok := content["containerType"].(Record); ok {
		name = cstr(ct["name"])
		if truthy(ct["id"]) {
			name = fmt.Sprintf("%s %s (%s)", name, cstr(ct["version"]), cstr(ct["id"]))
		}
	}
	lines = append(lines, "  type:        "+name)
	lines = append(lines, "  uuid:        "+cstr(content["uuid"]))
	if truthy(content["replaces"]) {
		lines = append(lines, "  replaces:    "+cstr(content["replaces"]))
	}
	if truthy(content["hash"]) {
		lines = append(lines, "  hash:        "+cstr(content["hash"]))
	}
	lines = append(lines, "  created:     "+cstr(content["created"]))
	lines = append(lines, "  storageTime: "+cstr(content["storageTime"]))
	lines = append(lines, "  author:      "+cstr(meta["author"]))
	return strings.Join(lines, "\n")
}
