package main

import (
	"os"

	"ghsearch/cmd/ghsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
