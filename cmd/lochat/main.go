// Command lochat is the entry point for the local chat assistant.
// It provides a CLI interface (via Cobra), an interactive terminal chat,
// and an optional HTTP server exposing the same session over REST/SSE.
package main

import (
	"fmt"
	"os"

	"lochat/cmd/lochat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
