// Package main is the memristor command.
package main

import (
	"os"

	"github.com/leapstack-labs/memristor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
