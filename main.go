// Package main is the entry point for the Castline CLI.
package main

import (
	"castline/cli/cmd"
)

func main() {
	cmd.Execute()
}
