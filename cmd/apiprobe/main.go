// cmd/apiprobe/main.go
//
// Entry point for the apiprobe CLI. Every subcommand loads the project's
// .apiprobe configuration, builds the catalog once, and works on it through
// the catalog, resolver and bridge packages.

package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
