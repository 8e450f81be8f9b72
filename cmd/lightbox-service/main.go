package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/archetype-pal/lightbox-backend/lightboxservice"
)

func main() {
	// Local development convenience; real deployments set env vars directly.
	_ = godotenv.Load()

	if err := lightboxservice.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
