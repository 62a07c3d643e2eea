package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(openManagerStore).Execute(); err != nil {
		log.Error("roostctl failed", "error", err)
		os.Exit(1)
	}
}
