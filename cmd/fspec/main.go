// fspec is the CLI for specification-driven work tracking.
package main

import (
	"os"

	"github.com/fspec-dev/fspec/internal/cmd"
)

// main delegates all command parsing and execution to cmd.Execute() and
// exits with its return code.
func main() {
	os.Exit(cmd.Execute())
}
