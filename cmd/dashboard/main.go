package main

import (
	"os"

	"github.com/sebastiankruger/steelmill-kpi/cmd/dashboard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
