package main

import (
	"os"

	"github.com/jwrfree/lemon-beta/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
