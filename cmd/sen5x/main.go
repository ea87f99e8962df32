package main

import (
	"os"

	"github.com/go-sensors/sensironsen5x/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
