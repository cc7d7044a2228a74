package main

import (
	"os"

	"soupcast/cmd"
	"soupcast/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
