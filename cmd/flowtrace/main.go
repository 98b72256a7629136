// Command flowtrace analyzes structured event logs emitted by a
// distributed dataflow runtime, reconstructing the operator/channel graph,
// per-operator and per-worker statistics, and a start/stop timeline, from
// either a directory of .ddshow replay logs or a live TCP capture.
package main

import (
	"fmt"
	"os"

	"github.com/flowsight/flowsight/cmd/flowtrace/commands"
	"github.com/flowsight/flowsight/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flowtrace:", err)
		os.Exit(1)
	}
}
