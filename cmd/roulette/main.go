package main

import (
	"os"

	"github.com/teslashibe/go-roulette/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
