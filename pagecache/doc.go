// Package pagecache sends a small pre-serialized header followed by
// storage-backed byte regions onto a non-blocking channel without staging the
// regions through an intermediate buffer.
//
// A Transfer is driven by a single event loop goroutine. Each WriteNext call
// performs at most one write from exactly one buffer: the header while it
// has unread bytes, then the body views strictly in order. The channel may
// accept fewer bytes than offered; the unwritten remainder stays behind the
// buffer's own cursor for the next call.
//
// The storage claim backing the body is released by Dispose, which the owner
// must reach on every exit path: completion, write failure or abandonment.
// Dispose is safe to call more than once.
package pagecache
