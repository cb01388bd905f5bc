package pagecache

import "fmt"

// Handle is the storage-side claim on the pages behind a body.
type Handle interface {
	Release()
}

// HandleFunc adapts a plain function to Handle.
type HandleFunc func()

func (f HandleFunc) Release() { f() }

// Region is a single contiguous storage result.
type Region interface {
	Bytes() []byte
	Size() int
	Release()
}

// RegionList is a storage result made of discontiguous buffers, e.g. several
// stored records.
type RegionList interface {
	BufferList() [][]byte
	BufferTotalSize() int
	Release()
}

// Body is an ordered sequence of views backed by one storage claim. A body of
// one view and a body of many views behave the same to a Transfer.
type Body struct {
	views    []*View
	total    int64
	handle   Handle
	released bool
}

// NewBody builds a body over bufs. handle may be nil for bodies not backed by
// storage.
func NewBody(handle Handle, bufs ...[]byte) *Body {
	b := &Body{
		views:  make([]*View, 0, len(bufs)),
		handle: handle,
	}
	for _, buf := range bufs {
		b.views = append(b.views, NewView(buf))
		b.total += int64(len(buf))
	}
	return b
}

// FromRegion wraps a single-region storage result. The region is released if
// it cannot be wrapped.
func FromRegion(r Region) (*Body, error) {
	buf := r.Bytes()
	if len(buf) != r.Size() {
		r.Release()
		return nil, fmt.Errorf("%w: reported %d, got %d bytes", ErrSizeMismatch, r.Size(), len(buf))
	}
	return NewBody(r, buf), nil
}

// FromRegionList wraps a multi-region storage result. The result is released
// if it cannot be wrapped.
func FromRegionList(r RegionList) (*Body, error) {
	bufs := r.BufferList()
	sum := 0
	for _, buf := range bufs {
		sum += len(buf)
	}
	if sum != r.BufferTotalSize() {
		r.Release()
		return nil, fmt.Errorf("%w: reported %d, got %d bytes", ErrSizeMismatch, r.BufferTotalSize(), sum)
	}
	return NewBody(r, bufs...), nil
}

// TotalSize is the sum of all view lengths, fixed at construction.
func (b *Body) TotalSize() int64 {
	return b.total
}

// Views returns the views in drain order.
func (b *Body) Views() []*View {
	return b.views
}

// Release drops the storage claim. Only the first call reaches the handle.
func (b *Body) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.handle != nil {
		b.handle.Release()
	}
}

// active returns the first view with unread bytes, or nil when drained.
func (b *Body) active() *View {
	for _, v := range b.views {
		if v.Len() > 0 {
			return v
		}
	}
	return nil
}
