// Package main provides the gameapi server binary.
package main

import (
	"os"

	"github.com/leoska/gameapi/cmd/gameapi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
