// Command casefile is the CLI over the investigation store: sessions,
// findings, hypotheses, tasks, decision traces, precedent search, the
// link graph, and trail rebuild.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// Exit codes: 0 success, 1 operational failure, 2 usage error.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "casefile: %v\n", err)
		if errors.Is(err, types.ErrInvalidInput) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}
