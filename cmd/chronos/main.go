package main

import (
	"os"

	appLog "chronos/internal/log"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("chronos failed", err)
		os.Exit(1)
	}
}
