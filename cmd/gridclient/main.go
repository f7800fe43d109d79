package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Values from .env never override the variables that are already set.
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
