// Package main is the entry point for the court CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/vinayprograms/agentkit/credentials"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// globalCreds holds loaded credentials; env vars are the fallback.
var globalCreds *credentials.Credentials

func init() {
	if creds, _, err := credentials.Load(); err == nil && creds != nil {
		globalCreds = creds
	}
	_ = godotenv.Load()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("court"),
		kong.Description("Put a historical figure or event on trial and write a balanced verdict."),
		kong.UsageOnError(),
		kongVars(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
