package main

import (
	"fmt"
	"os"

	"github.com/shelfmark/shelfmark/internal/errors"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.Message(err))
		os.Exit(1)
	}
}
