// aptlookup answers "which building is this?" from a district building table.
// Single binary: a daemon that keeps the table indexed, and query commands.
package main

import (
	"fmt"
	"os"

	"github.com/corey/aptlookup/cmd/aptlookup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code := cmd.ExitCode(err); code >= 0 {
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
