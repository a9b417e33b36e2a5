package main

import (
	"os"

	"github.com/quantlab/topescape/cmd/topescape/commands"
)

// main is the entry point for the topescape CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
