package main

import (
	"github.com/leadgrid/gatekeeper/internal/cli"
)

func main() {
	cli.Execute()
}
