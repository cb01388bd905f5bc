package node

import (
	"fmt"
	"strings"

	"github.com/fzft/go-mock-mq/pagecache"
)

type CommandFlags uint64

const (
	CmdWrite CommandFlags = 1 << iota
	CmdReadOnly
	CmdFast
)

type commandProc func(b *Broker, conn Conn, args []string) *pagecache.Transfer

// BrokerCommand describes one request type.
type BrokerCommand struct {
	Name  string
	Proc  commandProc
	Flags CommandFlags

	// Arity is the exact number of arguments including the name, or -N for
	// at least N.
	Arity int
}

func (c *BrokerCommand) arityOK(argc int) bool {
	if c.Arity >= 0 {
		return argc == c.Arity
	}
	return argc >= -c.Arity
}

var commandTable = map[string]*BrokerCommand{
	"ping":   {Name: "ping", Proc: pingCommand, Arity: -1, Flags: CmdFast},
	"append": {Name: "append", Proc: appendCommand, Arity: 2, Flags: CmdWrite},
	"get":    {Name: "get", Proc: getCommand, Arity: 2, Flags: CmdReadOnly},
	"fetch":  {Name: "fetch", Proc: fetchCommand, Arity: -2, Flags: CmdReadOnly},
	"info":   {Name: "info", Proc: infoCommand, Arity: 1, Flags: CmdReadOnly},
	"quit":   {Name: "quit", Proc: quitCommand, Arity: 1, Flags: CmdFast},
}

func lookupCommand(name string) *BrokerCommand {
	return commandTable[strings.ToLower(name)]
}

// call runs args against the command table and returns the reply.
func (b *Broker) call(conn Conn, args []string) *pagecache.Transfer {
	cmd := lookupCommand(args[0])
	if cmd == nil {
		return errorReply(fmt.Sprintf("unknown command '%s'", args[0]))
	}
	if !cmd.arityOK(len(args)) {
		return errorReply(fmt.Sprintf("wrong number of arguments for '%s' command", cmd.Name))
	}
	return cmd.Proc(b, conn, args)
}
