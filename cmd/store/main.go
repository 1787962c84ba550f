// Package main provides the entry point for the store CLI.
//
// Usage:
//
//	store '{"enabled": true}'
//	store key1=value1 key2=value2 --type settings
//
// Flags:
//
//	--api-token  API token (STORE_API_TOKEN)
//	--api-url    API URL (STORE_API_URL)
//	--project    Project slug (STORE_PROJECT)
//	--type       Optional data type tag
//
// The process exits with status 0 when the API accepted the data and 1 on any
// configuration, input or request failure.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"store/internal/client/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
