// Package main provides the entry point for the advisor CLI.
package main

import (
	"os"

	"github.com/finopshub/advisor/cmd/advisor/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cmd.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
