package mqclient

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fzft/go-mock-mq/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCommand(t *testing.T) {
	argv, err := formatCommand("FETCH %d %d", 10, int64(2))
	assert.NoError(t, err)
	assert.Equal(t, []string{"FETCH", "10", "2"}, argv)

	argv, err = formatCommand("APPEND  pre-%s", []byte("fix"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"APPEND", "pre-fix"}, argv)

	argv, err = formatCommand("PING 100%%", "extra")
	assert.NoError(t, err)
	assert.Equal(t, []string{"PING", "100%"}, argv)

	_, err = formatCommand("GET %c", 'A')
	assert.ErrorIs(t, err, ErrFormat)

	_, err = formatCommand("GET %d")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = formatCommand("GET %d", "one")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = formatCommand("GET %")
	assert.ErrorIs(t, err, ErrFormat)
}

// serveOnce accepts one connection, reads one request and writes reply in
// the given pieces.
func serveOnce(t *testing.T, pieces ...string) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		for _, p := range pieces {
			if _, err := conn.Write([]byte(p)); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func TestCommandFragmentedReply(t *testing.T) {
	host, port := serveOnce(t, "*2\r\n:4", "\r\n$5\r\nhel", "lo\r\n")
	c, err := Connect(host, port, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	reply, err := c.Command("GET %d", 4)
	require.NoError(t, err)
	assert.Equal(t, resp.Array{Elements: []resp.Node{
		resp.Integer{Value: 4}, resp.BlobString{Value: "hello"},
	}}, reply)
	assert.Equal(t, ErrNoErr, c.Err)
}

func TestCommandErrorReplyIsNotAnError(t *testing.T) {
	host, port := serveOnce(t, "-ERR unknown command 'NOPE'\r\n")
	c, err := Connect(host, port, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	reply, err := c.Do("NOPE")
	require.NoError(t, err)
	assert.Equal(t, resp.Error{Message: "ERR unknown command 'NOPE'"}, reply)
}

func TestCommandEOF(t *testing.T) {
	host, port := serveOnce(t, "*2\r\n")
	c, err := Connect(host, port, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do("FETCH", "0")
	assert.Error(t, err)
	assert.Equal(t, ErrEOF, c.Err)
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	_, err = Connect("127.0.0.1", addr.Port, time.Second)
	assert.Error(t, err)
}
