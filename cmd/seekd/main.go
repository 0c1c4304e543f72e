// Package main provides the entry point for the seekd CLI.
package main

import (
	"fmt"
	"os"

	"github.com/seekspace/seekd/cmd/seekd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seekd:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
