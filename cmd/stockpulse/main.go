package main

import (
	"os"

	"github.com/minjae-dev/stockpulse/cmd/stockpulse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
