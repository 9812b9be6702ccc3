// Package main is the entry point for gomokuctl.
// gomokuctl is the operator terminal tool for the gomokuplane API.
package main

import (
	"gomokuplane/cmd/cli/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
