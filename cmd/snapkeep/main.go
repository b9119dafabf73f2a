// Package main is the entry point for the snapkeep CLI.
package main

import (
	"os"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands"
	"github.com/thoreinstein/snapkeep/internal/errors"
)

func main() {
	err := commands.Execute()
	if err != nil {
		commands.PrintError(os.Stderr, err)
	}
	os.Exit(errors.ExitCode(err))
}
