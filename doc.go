/*
Package layerfs provides a composite filesystem view for Go: a primary
("base") filesystem namespace with sub-trees transparently redirected onto
independent backend filesystems mounted at fixed directory points, in the
spirit of bind mounts and archive-as-directory mounting.

# Overview

A LayerFS pairs one base backend with an ordered mount table. Every path it
hands out is a composite LayeredPath: either a pure base-namespace location,
or a location that has crossed into a mounted overlay, carrying both the
owning mount point and an absolute path in the overlay backend's own
namespace. Every operation classifies its path against the mount table and
delegates to exactly one backend.

# Key Features

  - Dual-namespace path algebra (parent, resolve, relativize, subpath,
    ordering) that stays consistent across the base/overlay boundary
  - Capability-based backends: anything satisfying the Backend interface
    can serve as the base layer or as a mounted overlay
  - Bundled backends for afero filesystems, absfs filesystems, and
    read-only zip archives
  - Lazy directory streams that re-express raw backend entries as
    composite paths
  - YAML mount-table configuration

# Basic Usage

	base := layerfs.NewAferoBackend(afero.NewOsFs())
	archive, err := layerfs.NewZipBackend("/srv/content.zip")
	if err != nil {
	    log.Fatal(err)
	}
	mount, _ := base.ParsePath("/data")

	lfs := layerfs.New(base, layerfs.WithMount(mount, archive))

	p, err := lfs.ParsePath("/data/notes.txt")
	if err != nil {
	    log.Fatal(err)
	}
	ch, err := lfs.NewByteChannel(p, os.O_RDONLY, 0)
	if err != nil {
	    log.Fatal(err)
	}
	defer ch.Close()
	content, err := io.ReadAll(ch)

Paths under /data read from the archive; everything else reads from the
host filesystem.

# Mount Classification

Mount points are matched in registration order and the first prefix match
wins. There is no longest-prefix preference: when mounts nest or overlap,
register the more specific point first. The mount table is fixed at
construction and never changes.

# Path Semantics

LayeredPath values are immutable; every transform returns a new value. A
path carries an overlay component exactly when it lies inside a mount, and
then its base component is exactly the owning mount point. Ordering is
lexicographic: base first, and for equal bases a pure path sorts strictly
before any overlaid path.

Names and relative paths cross the namespace boundary by round-tripping
through the destination namespace's own parser, so each side's separator
and escaping rules are honored.

# Boundaries

Hard links, symlinks, and working-directory changes are defined only within
the base namespace; an endpoint inside an overlay fails with ErrCrossLayer
or ErrUnsupported. Same-file identity across backends is undefined and
always reported false. MIME type and encoding queries always report
unknown. Watch registration returns an inert handle.

# Concurrency

LayerFS holds no mutable state beyond the immutable mount table and
performs no synchronization; concurrent use is as safe as the backends it
delegates to. Directory streams hold a backend resource until Close.

# Limitations

  - No attribute or directory caching; every call reaches the backend
  - No change watching; the watch handle never delivers events
  - No cross-backend rename, copy, or identity
*/
package layerfs
