package main

import (
	"os"

	"github.com/nottombrown/parallel-trpo/cli"
)

func main() {
	rootCommand := cli.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
