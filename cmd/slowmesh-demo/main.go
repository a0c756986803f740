// Command slowmesh-demo is a thin CLI for exercising a junction from the
// shell. It is explicitly out of the core's scope (spec.md §1 names
// "command-line entry points and demo binaries" as an external
// collaborator) and is kept minimal.
package main

import (
	"fmt"
	"os"

	"github.com/jython234/slowmesh/cmd/slowmesh-demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
