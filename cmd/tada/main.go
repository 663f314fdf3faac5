package main

import (
	"os"

	"github.com/idilsaglam/tada/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
