package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/maxgio92/ndi-discover/cmd/discover"
	"github.com/maxgio92/ndi-discover/cmd/serve"
)

func main() {
	cmd := discover.NewCmd()
	cmd.AddCommand(serve.NewCmd())

	err := cmd.Execute()
	if err != nil {
		var exitErr *discover.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}
