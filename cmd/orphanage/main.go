// Package main provides the orphanage CLI, which runs the orphan-removal
// scenario against a configured database and inspects its tables.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errOrphansRemain):
		return exitDefect
	default:
		return exitError
	}
}
