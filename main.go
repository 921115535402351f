// Package main is the entry point for the NERVE CLI.
package main

import (
	"fmt"
	"os"

	"github.com/nerve-engine/nerve/internal/cli"
)

func main() {
	app := cli.New()
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
