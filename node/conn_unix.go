//go:build linux
// +build linux

package node

import (
	"errors"
	"fmt"
	"io"

	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/pagecache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const readChunk = 16 * 1024

// errCloseAfterReply is returned by Flush when the connection asked to be
// closed and its replies are all written.
var errCloseAfterReply = errors.New("close after reply")

type DefaultConn struct {
	fd    int
	ip    string
	query []byte
	out   outbound
	stats *Stats
	poll  interest

	writeArmed      bool
	closeAfterReply bool
	closed          bool
}

var _ pagecache.Channel = (*DefaultConn)(nil)

func newConn(fd int, ip string, poll interest, stats *Stats) *DefaultConn {
	return &DefaultConn{
		fd:    fd,
		ip:    ip,
		poll:  poll,
		stats: stats,
	}
}

func (c *DefaultConn) Read() ([]byte, error) {
	var data []byte
	buf := make([]byte, readChunk)

	for {
		n, err := unix.Read(c.fd, buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			if IsTemporaryError(err) {
				return data, nil
			}
			return data, err
		}
		if n == 0 {
			return data, io.EOF
		}
	}
}

func (c *DefaultConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		if IsTemporaryError(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (c *DefaultConn) Enqueue(t *pagecache.Transfer) {
	if c.closed {
		t.Dispose()
		return
	}
	c.out.push(t)
}

func (c *DefaultConn) Flush() error {
	if c.closed {
		return nil
	}
	for c.out.Len() > 0 {
		t := c.out.front()
		before := t.Transferred()

		_, err := t.WriteNext(c)
		c.stats.addBytesSent(t.Transferred() - before)
		if err != nil {
			return fmt.Errorf("write error for fd %d: %w", c.fd, err)
		}

		if t.Done() {
			c.out.pop()
			t.Dispose()
			c.stats.transferCompleted()
			continue
		}

		if t.Transferred() == before {
			// Socket buffer is full; resume when epoll reports EPOLLOUT.
			return c.armWrite()
		}
	}

	if c.closeAfterReply {
		return errCloseAfterReply
	}
	return c.disarmWrite()
}

func (c *DefaultConn) armWrite() error {
	if c.writeArmed {
		return nil
	}
	if err := c.poll.registerWrite(c.fd); err != nil {
		return err
	}
	c.writeArmed = true
	return nil
}

func (c *DefaultConn) disarmWrite() error {
	if !c.writeArmed {
		return nil
	}
	if err := c.poll.registerRead(c.fd); err != nil {
		return err
	}
	c.writeArmed = false
	return nil
}

func (c *DefaultConn) CloseAfterReply() {
	c.closeAfterReply = true
}

func (c *DefaultConn) Closing() bool {
	return c.closeAfterReply
}

// Close disposes every queued reply, including one partially written, then
// closes the socket.
func (c *DefaultConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	for c.out.Len() > 0 {
		t := c.out.pop()
		if !t.Done() {
			c.stats.transferAborted()
			log.Logger.Debug("dropping unfinished reply",
				zap.Int("fd", c.fd),
				zap.Int64("sent", t.Transferred()),
				zap.Int64("size", t.Size()))
		}
		t.Dispose()
	}

	err := c.poll.unregister(c.fd)
	return multierr.Append(err, unix.Close(c.fd))
}

// Pending returns the number of queued replies.
func (c *DefaultConn) Pending() int {
	return c.out.Len()
}

// Fd returns the file descriptor of the connection.
func (c *DefaultConn) Fd() int {
	return c.fd
}

// Ip returns the ip of the connection.
func (c *DefaultConn) Ip() string {
	return c.ip
}
