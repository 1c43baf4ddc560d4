package main

import (
	"os"

	"github.com/vonheldenundgestalten/tokenlogin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
