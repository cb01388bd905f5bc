package pagecache

import "errors"

var (
	// ErrDisposed is returned by WriteNext once the transfer has been disposed.
	ErrDisposed = errors.New("pagecache: transfer disposed")

	// ErrInvalidWrite is returned when a channel reports a count outside [0, len(p)].
	ErrInvalidWrite = errors.New("pagecache: invalid write result")

	// ErrSizeMismatch is returned when a storage result reports a size that
	// differs from the bytes it actually exposes.
	ErrSizeMismatch = errors.New("pagecache: region size mismatch")
)
