package main

import (
	"os"

	"github.com/hadivarp/apigateway/internal/cmd"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=0.4.0 -X main.commit=abc123 -X main.buildDate=2026-10-15"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
