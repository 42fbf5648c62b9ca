package main

import (
	"os"

	"github.com/rustyeddy/confluence/cmd/confluence/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
