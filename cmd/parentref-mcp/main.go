// parentref-mcp serves the parent-scoped lookup tools over MCP stdio.
//
// Usage:
//
//	parentref-mcp serve    # Start MCP server (stdio transport)
//	parentref-mcp version
//
// It reads the same environment as the HTTP server: HASH_SALT, FIELDS_FILE
// and DATABASE_URL. Logs go to stderr so they stay off the protocol stream.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/mcptools"
	appserver "github.com/matthewbaird/parentref/internal/server"
	"github.com/matthewbaird/parentref/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--version", "-v", "version":
		fmt.Printf("parentref-mcp v%s\n", mcptools.Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	log.SetOutput(os.Stderr)
	ctx := context.Background()

	secret := os.Getenv("HASH_SALT")
	if secret == "" {
		return fmt.Errorf("HASH_SALT is required")
	}
	fieldsFile := os.Getenv("FIELDS_FILE")
	if fieldsFile == "" {
		fieldsFile = "fields.cue"
	}
	defs, err := config.LoadFile(fieldsFile)
	if err != nil {
		return fmt.Errorf("loading field definitions: %w", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = store.DefaultDSN
	}
	st, err := store.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	svc, err := appserver.NewServices(appserver.Options{
		Definitions: defs,
		Backend:     st,
		Settings:    st.Settings(),
		Secret:      []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("wiring services: %w", err)
	}
	svc.Bus.Start(ctx)
	defer svc.Bus.Stop()

	return server.ServeStdio(mcptools.New(svc.Autocomplete, svc.Builder, svc.Submitter))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `parentref-mcp: parent-scoped reference lookups for MCP clients

Usage:
  parentref-mcp serve     Start MCP server (stdio transport)
  parentref-mcp version   Print version
`)
}
