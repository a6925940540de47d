package main

import (
	"fmt"
	"os"

	"github.com/teranos/fedlens/cmd/fedlens/commands"
	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/logger"
)

func main() {
	defer logger.Cleanup()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
