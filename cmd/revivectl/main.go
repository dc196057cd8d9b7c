package main

import (
	"os"

	"storefront/cmd/revivectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
