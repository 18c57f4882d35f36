package layerfs

import (
	"errors"
	"io"
	"os"
)

var (
	// ErrCrossLayer is returned when an operation would span the base and an
	// overlay namespace (hard links, symlinks, cross-mount relativize).
	ErrCrossLayer = errors.New("operation crosses layer boundary")
	// ErrUnsupported is returned for operations a backend or the router does
	// not support, such as changing the working directory into an overlay.
	ErrUnsupported = errors.New("operation not supported")
	// ErrReadOnly is returned by read-only backends for mutating operations.
	ErrReadOnly = errors.New("filesystem is read-only")
	// ErrClosed is returned by a directory stream after Close.
	ErrClosed = errors.New("directory stream is closed")
)

// AccessMode is a bitmask of access checks for Backend.CheckAccess.
type AccessMode uint8

const (
	AccessRead AccessMode = 1 << iota
	AccessWrite
	AccessExecute

	// AccessExists requests a bare existence check.
	AccessExists AccessMode = 0
)

// Path is a single-namespace path value. Each Backend produces Path values
// in its own native syntax; LayerFS pairs them into composite LayeredPaths.
//
// Path values are immutable. Every transforming operation returns a new
// value. Name and Subpath panic when an index is out of range, mirroring
// slice indexing; all other failures are reported as errors.
type Path interface {
	// IsAbsolute reports whether the path is anchored at a root.
	IsAbsolute() bool

	// Root returns the path's root, or nil for a relative path.
	Root() Path

	// FileName returns the last name component as a relative path, or nil
	// if the path has no name components.
	FileName() Path

	// Parent returns the structural parent, or nil if none exists.
	Parent() Path

	// NameCount returns the number of name components. Roots are not names.
	NameCount() int

	// Name returns the name component at index i as a relative path.
	Name(i int) Path

	// Subpath returns the relative path holding components [start, end).
	Subpath(start, end int) Path

	// StartsWith reports whether the path begins with other, component-wise.
	StartsWith(other Path) bool

	// EndsWith reports whether the path ends with other. An absolute other
	// matches only by full equality.
	EndsWith(other Path) bool

	// Normalize removes redundant "." and ".." components.
	Normalize() Path

	// Resolve resolves other against this path. An absolute other wins
	// outright. The argument is adopted into this path's namespace by
	// re-parsing its string form.
	Resolve(other Path) Path

	// Relativize returns the relative path from this path to other.
	Relativize(other Path) (Path, error)

	// URI returns the path's URI form.
	URI() string

	// Compare defines a strict total order over paths of one namespace.
	Compare(other Path) int

	// String returns the path's native string form.
	String() string
}

// Channel is the byte-stream handle returned by Backend.NewByteChannel.
// Read-only backends return channels whose Write fails.
type Channel interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// DirectoryStream is a lazy, single-pass, non-restartable sequence of
// directory entries. Next returns io.EOF when the sequence is exhausted.
// Close releases the backend resource backing the stream and is safe to
// call more than once.
type DirectoryStream interface {
	Next() (Path, error)
	Close() error
}

// Filter selects directory entries during enumeration. A nil Filter accepts
// every entry. Filters passed to LayerFS receive composite LayeredPaths.
type Filter func(Path) bool

// Backend is the capability contract a filesystem provider must satisfy to
// serve as the base layer or as a mounted overlay. All Path arguments are
// values the backend itself produced via ParsePath, ParseURI, or one of its
// path-returning operations; backends never receive foreign path values.
//
// The router performs no locking around backend calls: a Backend is as
// concurrency-safe as it makes itself.
type Backend interface {
	// ParsePath parses a path string in the backend's native syntax.
	ParsePath(s string) (Path, error)

	// ParseURI parses a URI into a path. Backends without a URI scheme
	// return ErrUnsupported.
	ParseURI(uri string) (Path, error)

	// CheckAccess verifies the path exists and permits the given modes.
	CheckAccess(p Path, modes AccessMode) error

	// CreateDirectory creates a single directory.
	CreateDirectory(p Path, perm os.FileMode) error

	// Delete removes a file or empty directory.
	Delete(p Path) error

	// NewByteChannel opens a byte channel with os.O_* flags.
	NewByteChannel(p Path, flag int, perm os.FileMode) (Channel, error)

	// NewDirectoryStream enumerates the entries of a directory. Returned
	// entries are paths in the backend's own namespace, as is the filter's
	// argument. A nil filter accepts everything.
	NewDirectoryStream(p Path, filter Filter) (DirectoryStream, error)

	// ToAbsolutePath resolves a relative path against the backend's
	// working directory. Absolute paths are returned unchanged.
	ToAbsolutePath(p Path) Path

	// ToRealPath returns the canonical absolute path, resolving symlinks
	// where the backend supports them.
	ToRealPath(p Path) (Path, error)

	// ReadAttributes reads file attributes. The spec selects an attribute
	// group; "" and "basic" select the basic group.
	ReadAttributes(p Path, spec string) (map[string]any, error)

	// SetAttribute sets a single attribute by name.
	SetAttribute(p Path, name string, value any) error

	// CreateLink creates a hard link at link naming existing.
	CreateLink(link, existing Path) error

	// CreateSymbolicLink creates a symbolic link at link pointing to target.
	CreateSymbolicLink(link, target Path) error

	// ReadSymbolicLink returns the target of the symbolic link at link.
	ReadSymbolicLink(link Path) (Path, error)

	// SetWorkingDirectory changes the directory relative paths resolve
	// against.
	SetWorkingDirectory(p Path) error

	// Separator returns the backend's name separator.
	Separator() string

	// PathSeparator returns the backend's path-list separator.
	PathSeparator() string

	// TempDirectory returns the backend's temporary directory.
	TempDirectory() Path
}

// WatchHandle is the inert handle returned by LayerFS.Watch. Watch
// registration is best-effort for many callers, so registration succeeds
// but never delivers events.
type WatchHandle struct{}

// Valid reports whether the handle delivers events. It never does.
func (WatchHandle) Valid() bool { return false }

// Cancel releases the registration. It is a no-op.
func (WatchHandle) Cancel() {}
