// ============================================================================
// forkmap CLI - Main Entry Point
// ============================================================================
//
// File: cmd/forkmap/main.go
// Purpose: Application entry point and CLI initialization.
//
// Version Injection:
//   Variables injected at build time via -ldflags:
//   go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/mrafferty/forkmap/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = cli.Version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
