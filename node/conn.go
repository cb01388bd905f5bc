package node

import "github.com/fzft/go-mock-mq/pagecache"

// Conn is the interface for connection.
type Conn interface {
	// Read reads everything currently available on the connection.
	Read() (data []byte, err error)

	// Write writes p without blocking. (0, nil) means the socket is full.
	Write(p []byte) (n int, err error)

	// Enqueue queues a reply. The connection owns t from now on and disposes
	// it once written or when the connection closes.
	Enqueue(t *pagecache.Transfer)

	// Flush writes queued replies until the socket is full or the queue is empty.
	Flush() error

	// CloseAfterReply closes the connection once queued replies are written.
	CloseAfterReply()

	// Closing reports whether CloseAfterReply was called. Input read after
	// that point is discarded.
	Closing() bool

	// Close closes the connection.
	Close() error

	Fd() int
	Ip() string
}
