// Package main is the entry point for the dbcat binary.
package main

import (
	"os"

	"github.com/tokern/dbcat/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
