// Package main provides the tomeauth command-line tool.
//
// It signs profiles in and out against a configured storage backend, serves
// the HTTP API, and load-tests the session lifecycle.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
