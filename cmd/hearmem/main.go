// Package main is the entry point for the hearmem CLI.
//
// All logic lives in the commands package; main only executes the root
// command.
package main

import (
	"os"

	"github.com/nithinv16/hearmem/cmd/hearmem/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
