package main

import (
	"os"

	"github.com/aussiebroadwan/nullprofile/cmd/nullprofile/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
