// Package main is the entry point for the mgn CLI tool.
package main

import (
	"os"

	"github.com/klaboworld/marginalia/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
