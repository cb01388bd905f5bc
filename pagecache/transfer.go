package pagecache

// Transfer sends a header and then a body onto a Channel, one bounded write
// per WriteNext call. It is not safe for concurrent use.
type Transfer struct {
	header      *View
	body        *Body
	size        int64
	transferred int64
	disposed    bool
}

// NewTransfer takes ownership of body. A nil body sends the header alone.
func NewTransfer(header []byte, body *Body) *Transfer {
	if body == nil {
		body = &Body{}
	}
	return &Transfer{
		header: NewView(header),
		body:   body,
		size:   int64(len(header)) + body.TotalSize(),
	}
}

// Size is the header length plus the body total size.
func (t *Transfer) Size() int64 {
	return t.size
}

// Transferred is the number of bytes the channel accepted so far.
func (t *Transfer) Transferred() int64 {
	return t.transferred
}

// Position sums the header cursor and every body view cursor.
//
// It is a diagnostic only. Callers tracking progress should use the value
// returned by WriteNext or Transferred.
func (t *Transfer) Position() int64 {
	pos := int64(t.header.Position())
	for _, v := range t.body.views {
		pos += int64(v.Position())
	}
	return pos
}

// Done reports whether the header and every body view are fully written.
func (t *Transfer) Done() bool {
	return t.active() == nil
}

// WriteNext offers the current buffer to ch once. It returns the cumulative
// number of bytes transferred after the attempt, or 0 without touching ch
// when nothing is left to send. A channel that accepts nothing leaves the
// cumulative count unchanged; use Done to tell the two apart.
//
// Errors from ch are returned as is. Bytes accepted before the error stay
// counted.
func (t *Transfer) WriteNext(ch Channel) (int64, error) {
	if t.disposed {
		return 0, ErrDisposed
	}
	b := t.active()
	if b == nil {
		return 0, nil
	}
	n, err := writeOnce(ch, b)
	t.transferred += int64(n)
	return t.transferred, err
}

// Dispose releases the storage claim. The transfer must not be written after
// Dispose; repeated calls are no-ops.
func (t *Transfer) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.body.Release()
}

// Disposed reports whether Dispose has been called.
func (t *Transfer) Disposed() bool {
	return t.disposed
}

func (t *Transfer) active() Buffer {
	if t.header.Len() > 0 {
		return t.header
	}
	if v := t.body.active(); v != nil {
		return v
	}
	return nil
}
