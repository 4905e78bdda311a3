// Package main provides the entry point for the downlink CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/downlinkhq/downlink/internal/cli"
)

func main() {
	godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
