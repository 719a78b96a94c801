package main

import (
	"fmt"
	"os"

	"github.com/benvon/taskwise/cmd/taskctl/commands"
)

func main() {
	rootCmd := commands.NewRootCmd(commands.OpenFromEnv)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
