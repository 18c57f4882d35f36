package layerfs

import (
	"os"
)

// layeredDirectoryStream wraps a backend's raw entry sequence and
// re-expresses each raw entry as a composite path: entries produced by an
// overlay backend keep the folder's mount point as their base component,
// entries produced by the base backend are pure base paths.
//
// The stream is lazy, single-pass, and non-restartable. It holds the
// delegate's backend resource open until Close.
type layeredDirectoryStream struct {
	folder    *LayeredPath
	delegate  DirectoryStream
	inOverlay bool
	filter    Filter
	closed    bool
}

// Next returns the next entry as a composite path, or io.EOF when the
// backend's sequence is exhausted. Entries rejected by the filter are
// skipped.
func (s *layeredDirectoryStream) Next() (Path, error) {
	if s.closed {
		return nil, &os.PathError{Op: "readdir", Path: s.folder.String(), Err: ErrClosed}
	}
	for {
		raw, err := s.delegate.Next()
		if err != nil {
			return nil, err
		}
		var lp *LayeredPath
		if s.inOverlay {
			lp = &LayeredPath{base: s.folder.base, overlay: raw}
		} else {
			lp = &LayeredPath{base: raw}
		}
		if s.filter != nil && !s.filter(lp) {
			continue
		}
		return lp, nil
	}
}

// Close releases the backend's underlying sequence. Calling Close more
// than once is safe; only the first call reaches the delegate.
func (s *layeredDirectoryStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.delegate.Close()
}
