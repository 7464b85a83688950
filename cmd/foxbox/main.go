package main

import (
	"os"

	"github.com/northfox/foxbox/cmd/foxbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
