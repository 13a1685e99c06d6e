package main

import (
	"os"

	"github.com/kamiazya/scopes/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
