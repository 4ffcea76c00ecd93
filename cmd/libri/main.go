// Package main is the entry point for the libri CLI tool.
package main

import (
	"os"

	"github.com/nbelyaev/libri/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
