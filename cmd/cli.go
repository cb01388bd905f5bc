package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fzft/go-mock-mq/deps/linenoise"
	"github.com/fzft/go-mock-mq/deps/mqclient"
	"github.com/fzft/go-mock-mq/resp"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

const (
	CliHisFileEnv     = "MQCLI_HISTFILE"
	CliHisFileDefault = ".mqcli_history"
	CliDefaultTimeout = 30 * time.Second
)

type CliConnectFlag int

const (
	CCForce CliConnectFlag = 1 << iota // Re-connect if already connected.
	CCQuiet                            // Don't show non-error messages.
)

type OutputMode uint8

const (
	OutputStandard OutputMode = iota
	OutputRaw
)

type CliConnInfo struct {
	hostIp   string
	hostPort int
}

type CliConfig struct {
	connInfo    *CliConnInfo
	interactive bool
	prompt      string
	output      OutputMode
	timeout     time.Duration
}

type Cli struct {
	config *CliConfig
	ctx    *mqclient.Context
	out    io.Writer
	errOut io.Writer
}

// NewCli returns a cli for host:port. Replies are printed raw when raw is
// set or stdout is not a terminal.
func NewCli(host string, port int, raw bool) *Cli {
	config := &CliConfig{
		connInfo: &CliConnInfo{hostIp: host, hostPort: port},
		timeout:  CliDefaultTimeout,
	}
	if raw || !isatty.IsTerminal(os.Stdout.Fd()) {
		config.output = OutputRaw
	}
	cli := &Cli{config: config, out: os.Stdout, errOut: os.Stderr}
	cli.refreshPrompt()
	return cli
}

func (cli *Cli) Version(version, gitSHA1 string) string {
	if gitSHA1 == "" || gitSHA1 == "unknown" {
		return version
	}
	return fmt.Sprintf("%s (git:%s)", version, gitSHA1)
}

func (cli *Cli) Usage(out io.Writer, version string) {
	fmt.Fprintf(out, `mqcli %s

Usage: mqcli [OPTIONS] [cmd [arg [arg ...]]]
  -h <hostname>      Server hostname (default: 127.0.0.1).
  -p <port>          Server port (default: 6380).
  --raw              Use raw formatting for replies (default when STDOUT is
                     not a tty).
  --help             Output this help and exit.
  --version          Output version and exit.

Examples:
  mqcli append hello
  mqcli fetch 0 10
  mqcli -p 6390 info

When no command is given, mqcli starts in interactive mode.
Type "help" in interactive mode for information on available commands.

`, version)
}

// Run executes args once when given, otherwise starts the repl.
func (cli *Cli) Run(args []string) error {
	if len(args) > 0 {
		if err := cli.connect(0); err != nil {
			return err
		}
		defer cli.ctx.Close()
		return cli.issueCommand(args, 1)
	}

	// an unreachable server is reported at the prompt
	_ = cli.connect(0)
	return cli.repl()
}

// connect to the broker
// flag: CCForce: connect even if there is already a connection.
// CCQuiet: don't print errors if connection fails.
func (cli *Cli) connect(flag CliConnectFlag) error {
	if cli.ctx != nil && flag&CCForce == 0 {
		return nil
	}
	if cli.ctx != nil {
		cli.ctx.Close()
		cli.ctx = nil
	}

	ctx, err := mqclient.Connect(cli.config.connInfo.hostIp, cli.config.connInfo.hostPort, cli.config.timeout)
	if err != nil {
		if flag&CCQuiet == 0 {
			fmt.Fprintf(cli.errOut, "%s\n", err)
		}
		return err
	}
	cli.ctx = ctx
	return nil
}

func (cli *Cli) repl() error {
	var historyFile string

	line := linenoise.New()
	defer line.Close()

	cli.config.interactive = true
	if isatty.IsTerminal(os.Stdin.Fd()) {
		historyFile = getDotfilePath(CliHisFileEnv, CliHisFileDefault)
		if historyFile != "" {
			if err := line.HistoryLoad(historyFile); err != nil {
				fmt.Fprintf(cli.errOut, "could not load history: %s\n", err)
			}
		}
	}

	for {
		prompt := cli.config.prompt
		if cli.ctx == nil {
			prompt = "not connected> "
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		argv, err := splitArgs(input)
		if err != nil {
			fmt.Fprintln(cli.out, "Invalid argument(s)")
			continue
		}
		if len(argv) == 0 {
			continue
		}
		line.AppendHistory(input)
		if historyFile != "" {
			line.HistorySave(historyFile)
		}

		// an optional leading number repeats the command
		repeat := 1
		if n, err := strconv.Atoi(argv[0]); err == nil && len(argv) > 1 {
			if n <= 0 {
				fmt.Fprintln(cli.out, "Invalid mqcli repeat command option value.")
				continue
			}
			repeat = n
			argv = argv[1:]
		}

		switch {
		case strings.EqualFold(argv[0], "quit") || strings.EqualFold(argv[0], "exit"):
			if cli.ctx != nil {
				cli.ctx.Close()
			}
			return nil
		case len(argv) == 3 && strings.EqualFold(argv[0], "connect"):
			port, err := strconv.Atoi(argv[2])
			if err != nil {
				fmt.Fprintln(cli.out, "Invalid port number")
				continue
			}
			cli.config.connInfo.hostIp = argv[1]
			cli.config.connInfo.hostPort = port
			cli.refreshPrompt()
			cli.connect(CCForce)
		case len(argv) == 1 && strings.EqualFold(argv[0], "clear"):
			line.ClearScreen()
		case strings.EqualFold(argv[0], "help"):
			cli.printHelp()
		default:
			start := time.Now()
			if err := cli.issueCommand(argv, repeat); err != nil {
				fmt.Fprintf(cli.errOut, "%s\n", err)
				continue
			}
			if cli.config.output == OutputStandard {
				fmt.Fprintf(cli.out, "(%.2fs)\n", time.Since(start).Seconds())
			}
		}
	}
}

// issueCommand sends argv repeat times, reconnecting once when the
// connection was lost.
func (cli *Cli) issueCommand(argv []string, repeat int) error {
	for i := 0; i < repeat; i++ {
		if cli.ctx == nil {
			if err := cli.connect(CCQuiet); err != nil {
				return fmt.Errorf("could not connect to %s:%d: %w",
					cli.config.connInfo.hostIp, cli.config.connInfo.hostPort, err)
			}
		}

		reply, err := cli.ctx.Do(argv...)
		if err != nil && cli.config.interactive {
			if cerr := cli.connect(CCForce | CCQuiet); cerr == nil {
				reply, err = cli.ctx.Do(argv...)
			}
		}
		if err != nil {
			if cli.ctx != nil {
				cli.ctx.Close()
				cli.ctx = nil
			}
			return err
		}

		cli.printReply(argv[0], reply)
		if _, isErr := reply.(resp.Error); isErr && !cli.config.interactive {
			return errors.New("command failed")
		}
	}
	return nil
}

func (cli *Cli) printReply(command string, reply resp.Node) {
	if cli.config.output == OutputRaw {
		fmt.Fprintln(cli.out, resp.FormatRaw(reply))
		return
	}
	fmt.Fprintln(cli.out, resp.Format(reply))

	if arr, ok := reply.(resp.Array); ok && strings.EqualFold(command, "fetch") && len(arr.Elements) > 0 {
		var size int
		for _, elem := range arr.Elements[1:] {
			if blob, ok := elem.(resp.BlobString); ok {
				size += len(blob.Value)
			}
		}
		fmt.Fprintf(cli.out, "(%d records, %s)\n", len(arr.Elements)-1, humanize.IBytes(uint64(size)))
	}
}

func (cli *Cli) printHelp() {
	for _, h := range commandHelp {
		fmt.Fprintf(cli.out, "  %-8s %-22s %s\n", h.name, h.params, h.summary)
	}
}

func (cli *Cli) refreshPrompt() {
	cli.config.prompt = fmt.Sprintf("mq://%s:%d> ", cli.config.connInfo.hostIp, cli.config.connInfo.hostPort)
}

// getDotfilePath returns envOverride's value, or dotFilename in the home
// directory. "/dev/null" disables the file.
func getDotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
