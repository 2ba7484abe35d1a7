// Package main is the entry point for the errlog CLI/TUI.
package main

import (
	"errors"
	"fmt"
	"os"

	"errlog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exit *cli.ExitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, "errlog:", err)
		os.Exit(1)
	}
}
