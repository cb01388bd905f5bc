// Package mqclient is a small blocking client for the broker's RESP protocol.
package mqclient

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/fzft/go-mock-mq/resp"
)

// KeepAlivePeriod is the TCP keepalive interval of client connections.
const KeepAlivePeriod = 15 * time.Second

// ErrFormat is returned for a malformed command format string.
var ErrFormat = errors.New("mqclient: bad command format")

type ErrFlag uint8

const (
	ErrNoErr ErrFlag = iota
	ErrIo
	ErrEOF
	ErrProtocol
	ErrTimeout
)

// Context is a connection to one broker. It is not safe for concurrent use.
type Context struct {
	Err    ErrFlag
	ErrStr string

	Tcp struct {
		Host string
		Port int
	}

	conn    net.Conn
	timeout time.Duration
	rBuf    []byte
	chunk   []byte
}

// Connect dials host:port. A zero timeout waits for replies forever.
func Connect(host string, port int, timeout time.Duration) (*Context, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: timeout, KeepAlive: KeepAlivePeriod}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}

	c := &Context{conn: conn, timeout: timeout, chunk: make([]byte, 64*1024)}
	c.Tcp.Host = host
	c.Tcp.Port = port
	return c, nil
}

// Command formats a command like "GET %d" and returns its reply.
// Supported verbs are %s and %d; each expands inside its word.
func (c *Context) Command(format string, args ...interface{}) (resp.Node, error) {
	argv, err := formatCommand(format, args...)
	if err != nil {
		return nil, err
	}
	return c.Do(argv...)
}

// Do sends argv as one request and blocks for the reply. An error reply from
// the broker is returned as a resp.Error node, not as an error.
func (c *Context) Do(argv ...string) (resp.Node, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrFormat)
	}
	if _, err := c.conn.Write(resp.ConvertToRESP(argv[0], argv[1:]...)); err != nil {
		return nil, c.setError(ErrIo, err)
	}
	return c.GetReply()
}

// GetReply reads the next reply, buffering whatever follows it.
func (c *Context) GetReply() (resp.Node, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, c.setError(ErrIo, err)
		}
	}

	for {
		if len(c.rBuf) > 0 {
			node, n, err := resp.Parse(c.rBuf)
			if err == nil {
				c.rBuf = c.rBuf[n:]
				return node, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return nil, c.setError(ErrProtocol, err)
			}
		}

		n, err := c.conn.Read(c.chunk)
		c.rBuf = append(c.rBuf, c.chunk[:n]...)
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				return nil, c.setError(ErrTimeout, err)
			case n == 0 && isEOF(err):
				return nil, c.setError(ErrEOF, err)
			case n == 0:
				return nil, c.setError(ErrIo, err)
			}
		}
	}
}

func (c *Context) setError(tp ErrFlag, err error) error {
	c.Err = tp
	c.ErrStr = err.Error()
	return err
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET)
}

func (c *Context) Close() error {
	return c.conn.Close()
}

// formatCommand splits format on spaces into arguments, expanding %s and %d
// from args.
func formatCommand(format string, args ...interface{}) ([]string, error) {
	var (
		curArg   []byte
		argv     []string
		argIndex int
		touched  bool
	)

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			if c == ' ' {
				if touched {
					argv = append(argv, string(curArg))
					curArg = curArg[:0]
					touched = false
				}
			} else {
				curArg = append(curArg, c)
				touched = true
			}
			continue
		}

		i++
		if i >= len(format) {
			return nil, fmt.Errorf("%w: format string ended unexpectedly", ErrFormat)
		}
		if format[i] == '%' {
			curArg = append(curArg, '%')
			touched = true
			continue
		}
		if argIndex >= len(args) {
			return nil, fmt.Errorf("%w: not enough arguments", ErrFormat)
		}

		switch format[i] {
		case 's':
			switch v := args[argIndex].(type) {
			case string:
				curArg = append(curArg, v...)
			case []byte:
				curArg = append(curArg, v...)
			default:
				return nil, fmt.Errorf("%w: expected a string argument", ErrFormat)
			}
		case 'd':
			switch v := args[argIndex].(type) {
			case int:
				curArg = strconv.AppendInt(curArg, int64(v), 10)
			case int64:
				curArg = strconv.AppendInt(curArg, v, 10)
			default:
				return nil, fmt.Errorf("%w: expected an integer argument", ErrFormat)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported format specifier %c", ErrFormat, format[i])
		}
		argIndex++
		touched = true
	}

	if touched {
		argv = append(argv, string(curArg))
	}
	return argv, nil
}
