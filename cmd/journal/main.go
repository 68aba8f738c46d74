package main

import (
	"os"

	"github.com/mohamedkhairy/trade-journal/cmd/journal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
