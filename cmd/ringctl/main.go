package main

import (
	"github.com/ssargent/eventring/cmd/ringctl/cmd"
)

func main() {
	cmd.Execute()
}
