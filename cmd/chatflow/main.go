// Package main provides the chatflow CLI application
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/flowgraph/chatflow/internal/cli"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := cli.NewRootCommand(cli.BuildInfo{Version: Version, Commit: Commit, BuildTime: BuildTime})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
