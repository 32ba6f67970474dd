package main

import (
	"os"

	"github.com/munkhbileg/openproject/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
