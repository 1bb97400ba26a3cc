package main

import (
	"os"

	"github.com/tracksync/tracksync/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
