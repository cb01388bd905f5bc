//go:build linux
// +build linux

package node

import (
	"bytes"
	"testing"

	"github.com/fzft/go-mock-mq/pagecache"
	"github.com/fzft/go-mock-mq/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeInterest records the last interest set per fd.
type fakeInterest struct {
	events map[int]string
	calls  int
}

func newFakeInterest() *fakeInterest {
	return &fakeInterest{events: make(map[int]string)}
}

func (f *fakeInterest) registerRead(fd int) error {
	f.calls++
	f.events[fd] = "read"
	return nil
}

func (f *fakeInterest) registerWrite(fd int) error {
	f.calls++
	f.events[fd] = "write"
	return nil
}

func (f *fakeInterest) unregister(fd int) error {
	f.calls++
	delete(f.events, fd)
	return nil
}

type countingHandle struct {
	released int
}

func (h *countingHandle) Release() { h.released++ }

// socketPair returns a non-blocking connected pair with a small send buffer
// on the first fd so large replies are written in several steps.
func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetsockoptInt(fds[0], unix.SOL_SOCKET, unix.SO_SNDBUF, 4096))
	t.Cleanup(func() { unix.Close(fds[1]) })
	return fds[0], fds[1]
}

// drain reads everything currently readable from fd.
func drain(t *testing.T, fd int, into *bytes.Buffer) {
	t.Helper()
	buf := make([]byte, 64*1024)
	for {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			into.Write(buf[:n])
		}
		if err != nil {
			require.True(t, IsTemporaryError(err), "read: %v", err)
			return
		}
		if n == 0 {
			return
		}
	}
}

func TestConnFlushPartialWrites(t *testing.T) {
	local, peer := socketPair(t)
	events := newFakeInterest()
	stats := &Stats{}
	conn := newConn(local, "", events, stats)
	defer conn.Close()

	header := []byte("*2\r\n:0\r\n")
	r1 := bytes.Repeat([]byte{'x'}, 256*1024)
	r2 := bytes.Repeat([]byte{'y'}, 100*1024)
	h := &countingHandle{}
	tr := pagecache.NewTransfer(header, pagecache.NewBody(h, r1, r2))
	conn.Enqueue(tr)

	require.NoError(t, conn.Flush())
	assert.Equal(t, "write", events.events[local])
	assert.Equal(t, 1, conn.Pending())
	assert.False(t, tr.Done())
	assert.Equal(t, 0, h.released)

	var got bytes.Buffer
	for i := 0; conn.Pending() > 0; i++ {
		require.Less(t, i, 100000)
		drain(t, peer, &got)
		require.NoError(t, conn.Flush())
	}
	drain(t, peer, &got)

	want := append(append(append([]byte{}, header...), r1...), r2...)
	assert.Equal(t, len(want), got.Len())
	assert.True(t, bytes.Equal(want, got.Bytes()))
	assert.Equal(t, 1, h.released)
	assert.Equal(t, "read", events.events[local])
	assert.Equal(t, tr.Size(), stats.BytesSent())
	assert.Equal(t, int64(1), stats.TransfersCompleted())
}

func TestConnFlushKeepsReplyOrder(t *testing.T) {
	local, peer := socketPair(t)
	conn := newConn(local, "", newFakeInterest(), &Stats{})
	defer conn.Close()

	conn.Enqueue(pagecache.NewTransfer([]byte("+A\r\n"), nil))
	conn.Enqueue(pagecache.NewTransfer([]byte("*1\r\n"), pagecache.NewBody(nil, []byte("$1\r\nB\r\n"))))
	conn.Enqueue(pagecache.NewTransfer([]byte(":3\r\n"), nil))
	require.NoError(t, conn.Flush())

	var got bytes.Buffer
	drain(t, peer, &got)
	assert.Equal(t, "+A\r\n*1\r\n$1\r\nB\r\n:3\r\n", got.String())
	assert.Equal(t, 0, conn.Pending())
}

func TestConnCloseDisposesPending(t *testing.T) {
	local, _ := socketPair(t)
	events := newFakeInterest()
	stats := &Stats{}
	conn := newConn(local, "", events, stats)

	h1, h2 := &countingHandle{}, &countingHandle{}
	conn.Enqueue(pagecache.NewTransfer([]byte("h"), pagecache.NewBody(h1, make([]byte, 512*1024))))
	conn.Enqueue(pagecache.NewTransfer([]byte("h"), pagecache.NewBody(h2, make([]byte, 10))))
	require.NoError(t, conn.Flush())
	require.Equal(t, 2, conn.Pending())

	require.NoError(t, conn.Close())
	assert.Equal(t, 1, h1.released)
	assert.Equal(t, 1, h2.released)
	assert.Equal(t, int64(2), stats.TransfersAborted())
	assert.NotContains(t, events.events, local)

	// enqueue after close releases immediately
	h3 := &countingHandle{}
	conn.Enqueue(pagecache.NewTransfer(nil, pagecache.NewBody(h3, []byte("late"))))
	assert.Equal(t, 1, h3.released)
	assert.NoError(t, conn.Close())
}

func TestConnFlushWriteFailure(t *testing.T) {
	local, peer := socketPair(t)
	conn := newConn(local, "", newFakeInterest(), &Stats{})
	require.NoError(t, unix.Shutdown(peer, unix.SHUT_RD))

	h := &countingHandle{}
	conn.Enqueue(pagecache.NewTransfer([]byte("hdr"), pagecache.NewBody(h, []byte("body"))))
	err := conn.Flush()
	assert.ErrorIs(t, err, unix.EPIPE)

	require.NoError(t, conn.Close())
	assert.Equal(t, 1, h.released)
}

func TestConnCloseAfterReply(t *testing.T) {
	local, peer := socketPair(t)
	conn := newConn(local, "", newFakeInterest(), &Stats{})
	defer conn.Close()

	conn.Enqueue(pagecache.NewTransfer([]byte("+OK\r\n"), nil))
	conn.CloseAfterReply()
	assert.ErrorIs(t, conn.Flush(), errCloseAfterReply)

	var got bytes.Buffer
	drain(t, peer, &got)
	assert.Equal(t, "+OK\r\n", got.String())
}

func TestConnRead(t *testing.T) {
	local, peer := socketPair(t)
	conn := newConn(local, "", newFakeInterest(), &Stats{})
	defer conn.Close()

	data, err := conn.Read()
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = unix.Write(peer, []byte("PING\r\n"))
	require.NoError(t, err)
	data, err = conn.Read()
	require.NoError(t, err)
	assert.Equal(t, "PING\r\n", string(data))
}

func TestHandleReadDropsInputAfterQuit(t *testing.T) {
	local, peer := socketPair(t)
	b := newTestBroker(t)
	p := &Poll{rHandler: b}
	conn := newConn(local, "", newFakeInterest(), &Stats{})
	defer conn.Close()

	_, err := unix.Write(peer, resp.ConvertToRESP("QUIT"))
	require.NoError(t, err)
	assert.ErrorIs(t, p.handleRead(conn), errCloseAfterReply)

	_, err = unix.Write(peer, resp.ConvertToRESP("APPEND", "late"))
	require.NoError(t, err)
	assert.ErrorIs(t, p.handleRead(conn), errCloseAfterReply)
	assert.Empty(t, conn.query)
	assert.Equal(t, int64(0), b.log.MaxOffset())

	var got bytes.Buffer
	drain(t, peer, &got)
	assert.Equal(t, "+OK\r\n", got.String())
}
