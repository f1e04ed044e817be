package main

import (
	"os"

	"github.com/nomore1007/SnekretAIry/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
