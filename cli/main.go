// ABOUTME: Entry point for the portal CLI
// ABOUTME: Command-line tool for checking and driving gateway sessions

package main

import (
	"fmt"
	"os"

	"github.com/markalston/portal-gateway/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
