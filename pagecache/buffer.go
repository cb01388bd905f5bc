package pagecache

import "fmt"

// Channel is the writable side of a connection. Write may accept fewer bytes
// than offered; (0, nil) means the channel cannot take more right now.
type Channel interface {
	Write(p []byte) (n int, err error)
}

// Buffer is a byte region drained through a read cursor.
type Buffer interface {
	// DataToWrite returns the bytes not written yet.
	DataToWrite() []byte

	// Next advances the cursor by n bytes.
	Next(n int)

	// Len returns the number of bytes not written yet.
	Len() int
}

// View is a read cursor over a byte slice it does not own.
type View struct {
	data []byte
	pos  int
}

var _ Buffer = (*View)(nil)

func NewView(b []byte) *View {
	return &View{data: b}
}

func (v *View) DataToWrite() []byte {
	return v.data[v.pos:]
}

func (v *View) Next(n int) {
	v.pos += n
	if v.pos > len(v.data) {
		v.pos = len(v.data)
	}
}

func (v *View) Len() int {
	return len(v.data) - v.pos
}

// Cap returns the full length of the view regardless of the cursor.
func (v *View) Cap() int {
	return len(v.data)
}

// Position returns the read cursor.
func (v *View) Position() int {
	return v.pos
}

// writeOnce offers the unread bytes of b to ch exactly once and advances the
// cursor by what ch accepted.
func writeOnce(ch Channel, b Buffer) (int, error) {
	p := b.DataToWrite()
	n, err := ch.Write(p)
	if n < 0 || n > len(p) {
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidWrite, err)
		}
		return 0, ErrInvalidWrite
	}
	b.Next(n)
	return n, err
}
