// Codescope - terminal client for the multi-agent code analysis service.
package main

import (
	"fmt"
	"os"

	"github.com/codescope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "codescope:", err)
		os.Exit(1)
	}
}
