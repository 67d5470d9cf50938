// Package main is the entry point for the geminichat CLI.
package main

import (
	"os"

	"github.com/jmylchreest/geminichat/cmd/geminichat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
