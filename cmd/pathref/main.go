// # cmd/pathref/main.go
package main

import (
	"os"

	"pathref/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
