package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/zenGate-Global/domain-verification/apps/cli/root"
)

func main() {
	_ = godotenv.Load()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
