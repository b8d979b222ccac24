package main

import (
	"os"

	"timelyhub-quiz-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
