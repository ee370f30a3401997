// Tendril: thread lifecycle MCP server.
//
// Institutional memory for AI coding agents: tracks open work items
// ("threads") across sessions, scores their vitality, deduplicates on
// creation, and reconciles state across a remote store, historical
// session records, and a local cache.
//
// Usage:
//
//	tendril serve              # Start MCP server (stdio transport)
//	tendril serve -config ...  # Start with an explicit config file
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tendril/internal/config"
	tendrilserver "tendril/internal/server"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// MCP stdio owns stdout; everything we say goes to stderr.
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("tendril v%s\n", tendrilserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to tendril.yaml (default: <data dir>/tendril.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Best-effort: a .env in the working directory feeds the TENDRIL_*
	// overrides. Its absence is the normal case.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	s, cleanup, err := tendrilserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// On interrupt, drain background syncs and close the session store
	// before exiting; the stdio transport itself ends when stdin closes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Tendril v%s — thread lifecycle MCP server

Usage:
  tendril serve [-config path]   Start the MCP server (stdio transport)
  tendril version                Print the version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "tendril": {
        "command": "tendril",
        "args": ["serve"]
      }
    }
  }
`, tendrilserver.Version)
}
