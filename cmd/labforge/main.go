package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/labforge/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var rfErr *cli.RunFailureError
		if errors.As(err, &rfErr) && rfErr.ExitCode != 0 {
			os.Exit(rfErr.ExitCode)
		}
		os.Exit(1)
	}
}
