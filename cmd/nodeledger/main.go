// Command nodeledger tracks node earnings and the license inventory.
package main

import (
	"os"

	"github.com/roach88/nodeledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
