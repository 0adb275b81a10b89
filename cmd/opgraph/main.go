package main

import (
	"os"

	"opgraph/internal/command"
)

func main() {
	os.Exit(command.Run(os.Args[1:], command.Meta{}))
}
