package main

import (
	"github.com/joho/godotenv"

	"github.com/threadsokc/workday-calendar/internal/cli"
)

func main() {
	// Load .env if present; real environment variables take precedence
	_ = godotenv.Load()

	cli.Execute()
}
