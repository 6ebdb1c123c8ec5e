package main

import (
	"os"

	"github.com/sara-star-quant/hybrid-channel/cmd/hybrid-channel/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
