package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fzft/go-mock-mq/cmd"
	"github.com/fzft/go-mock-mq/node"
)

func main() {
	fs := flag.NewFlagSet("mqcli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	host := fs.String("h", "127.0.0.1", "server hostname")
	port := fs.Int("p", 6380, "server port")
	raw := fs.Bool("raw", false, "use raw formatting for replies")
	help := fs.Bool("help", false, "output this help and exit")
	version := fs.Bool("version", false, "output version and exit")

	err := fs.Parse(os.Args[1:])
	cli := cmd.NewCli(*host, *port, *raw)
	v := cli.Version(node.Version(), node.GitSHA1())

	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		cli.Usage(os.Stderr, v)
		os.Exit(1)
	case *help:
		cli.Usage(os.Stdout, v)
		return
	case *version:
		fmt.Printf("mqcli %s\n", v)
		return
	}

	if err := cli.Run(fs.Args()); err != nil {
		os.Exit(1)
	}
}
