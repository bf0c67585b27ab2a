package main

import (
	"os"

	"mediacarousel/internal/mcarcli"
)

func main() {
	if err := mcarcli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
