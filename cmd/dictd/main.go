package main

import (
	"os"

	"github.com/sagerenn/dictd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
