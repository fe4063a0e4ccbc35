package main

import (
	"os"

	"github.com/ablizer/ablizer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
