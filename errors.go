package scidata

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when a container is constructed without any
	// data source.
	ErrNoData = errors.New("no data source")

	// ErrImmutable is returned on any attempt to modify an immutable
	// container. Release is the only way back to a mutable state.
	ErrImmutable = errors.New("immutable container")

	// ErrWrongHash is returned by a strict load when the stored container
	// hash does not match the recomputed one.
	ErrWrongHash = errors.New("wrong hash")

	// ErrPartial is returned when a partially loaded container is asked
	// to become mutable again, or when partial loading is requested for a
	// mutable archive.
	ErrPartial = errors.New("partially loaded container")
)

// ValidationError reports a violation of the content.json or meta.json field
// rules, naming the offending record and field.
type ValidationError struct {
	Item   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Item, e.Reason)
	}
	return fmt.Sprintf("%s: attribute %q %s", e.Item, e.Field, e.Reason)
}

// UnknownItemError is returned when accessing an item path that does not
// exist in the container.
type UnknownItemError struct {
	Path string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item %q", e.Path)
}

// NotLoadedError is returned when accessing an item that was excluded while
// reading the archive. The value of such an item is permanently inaccessible
// for this container instance.
type NotLoadedError struct {
	Path string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("item %q was ignored while reading the archive", e.Path)
}

// NoCodecError is returned when no registered codec matches an item's path
// extension or native value kind.
type NoCodecError struct {
	Path string
	Kind Kind
}

func (e *NoCodecError) Error() string {
	return fmt.Sprintf("no matching file format found for item %q", e.Path)
}

// NotSupportedError is returned when a codec does not support the
// representation required by the active container format.
type NotSupportedError struct {
	Path   string
	Format string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("item %q: codec not implemented for the %s format", e.Path, e.Format)
}

// RegistrationError reports an invalid codec registration.
type RegistrationError struct {
	Suffix string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %q: %s", e.Suffix, e.Reason)
}
