package main

import (
	"os"

	"github.com/ajmal017/piker/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
