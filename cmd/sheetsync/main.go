package main

import (
	"os"

	"github.com/expensebook/sheetsync/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
