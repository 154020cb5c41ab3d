package main

import (
	"os"

	"github.com/apiflow/apiflow/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
