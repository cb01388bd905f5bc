package cmd

import (
	"bytes"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fzft/go-mock-mq/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
		err  bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"get 1", []string{"get", "1"}, false},
		{"  fetch   0\t10  ", []string{"fetch", "0", "10"}, false},
		{`append "hello world"`, []string{"append", "hello world"}, false},
		{`append "a\nb\x41\"q"`, []string{"append", "a\nbA\"q"}, false},
		{`append 'it\'s raw\n'`, []string{"append", `it's raw\n`}, false},
		{`append ""`, []string{"append", ""}, false},
		{`append "open`, nil, true},
		{`append 'open`, nil, true},
		{`append "closed"x`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetDotfilePath(t *testing.T) {
	t.Setenv(CliHisFileEnv, "/tmp/custom_history")
	assert.Equal(t, "/tmp/custom_history", getDotfilePath(CliHisFileEnv, CliHisFileDefault))

	t.Setenv(CliHisFileEnv, "/dev/null")
	assert.Equal(t, "", getDotfilePath(CliHisFileEnv, CliHisFileDefault))

	home := t.TempDir()
	t.Setenv(CliHisFileEnv, "")
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, CliHisFileDefault), getDotfilePath(CliHisFileEnv, CliHisFileDefault))
}

func TestPromptAndVersion(t *testing.T) {
	cli := NewCli("127.0.0.1", 6380, true)
	assert.Equal(t, "mq://127.0.0.1:6380> ", cli.config.prompt)
	assert.Equal(t, OutputRaw, cli.config.output)

	assert.Equal(t, "0.1.0", cli.Version("0.1.0", "unknown"))
	assert.Equal(t, "0.1.0 (git:abc123)", cli.Version("0.1.0", "abc123"))

	var out bytes.Buffer
	cli.Usage(&out, "0.1.0")
	assert.Contains(t, out.String(), "Usage: mqcli")
}

func TestPrintReply(t *testing.T) {
	var out bytes.Buffer
	cli := NewCli("127.0.0.1", 6380, false)
	cli.out = &out
	cli.config.output = OutputStandard

	reply := resp.Array{Elements: []resp.Node{
		resp.Integer{Value: 2}, resp.BlobString{Value: "ab"}, resp.BlobString{Value: "cde"},
	}}
	cli.printReply("FETCH", reply)
	assert.Equal(t, "1) (integer) 2\n2) \"ab\"\n3) \"cde\"\n(2 records, 5 B)\n", out.String())

	out.Reset()
	cli.config.output = OutputRaw
	cli.printReply("GET", resp.Integer{Value: 7})
	assert.Equal(t, "7\n", out.String())
}

// fakeBroker answers every request on one connection with the replies in
// order.
func fakeBroker(t *testing.T, replies ...string) (string, int, chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	reqs := make(chan []byte, len(replies))
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf []byte
		chunk := make([]byte, 4096)
		for _, r := range replies {
			for {
				if _, n, err := resp.ParseCommand(buf); err == nil {
					reqs <- buf[:n]
					buf = buf[n:]
					break
				}
				n, err := conn.Read(chunk)
				if err != nil {
					return
				}
				buf = append(buf, chunk[:n]...)
			}
			if _, err := conn.Write([]byte(r)); err != nil {
				return
			}
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p, reqs
}

func TestRunSingleCommand(t *testing.T) {
	host, port, reqs := fakeBroker(t, "*2\r\n:1\r\n$5\r\nhello\r\n")

	var out bytes.Buffer
	cli := NewCli(host, port, true)
	cli.out = &out
	require.NoError(t, cli.Run([]string{"fetch", "0", "1"}))

	assert.Equal(t, string(resp.ConvertToRESP("fetch", "0", "1")), string(<-reqs))
	assert.Equal(t, "1\nhello\n", out.String())
}

func TestRunErrorReply(t *testing.T) {
	host, port, _ := fakeBroker(t, "-OUTOFRANGE offset out of range\r\n")

	var out bytes.Buffer
	cli := NewCli(host, port, true)
	cli.out = &out
	err := cli.Run([]string{"get", "9"})
	assert.Error(t, err)
	assert.True(t, strings.Contains(out.String(), "OUTOFRANGE"))
}

func TestRunNoServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	var errOut bytes.Buffer
	cli := NewCli("127.0.0.1", port, true)
	cli.errOut = &errOut
	assert.Error(t, cli.Run([]string{"ping"}))
	assert.Contains(t, errOut.String(), "could not connect")
}
