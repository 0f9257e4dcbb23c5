// Command relpath resolves relationship paths and compiles query plans
// against CUE or YAML model definitions.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/relpath/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report their own failures; anything else is a usage or
	// configuration error cobra handed back unprinted.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
