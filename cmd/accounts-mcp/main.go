// Package main provides the accounts MCP server command-line interface
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memtensor/accounts/mcp"
	"github.com/memtensor/accounts/pkg/client"
	"github.com/memtensor/accounts/pkg/logger"
)

var (
	apiURL   = flag.String("api-url", "http://localhost:8080", "Accounts API base URL")
	apiToken = flag.String("token", "", "Bearer token; the login tool can obtain one instead")
	username = flag.String("username", "", "Log in with this username on start")
	password = flag.String("password", "", "Password for -username")
	verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	version  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Accounts MCP Server v%s\n", mcp.Version)
		os.Exit(0)
	}

	if *apiToken == "" {
		*apiToken = os.Getenv("ACCOUNTS_TOKEN")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	// stdout carries the MCP protocol
	log, err := logger.New(logger.Options{Level: level, Format: "console", File: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{BaseURL: *apiURL, Timeout: 30 * time.Second, RetryCount: 2})
	c.SetToken(*apiToken)

	if _, err := c.Health(ctx); err != nil {
		log.Error("Failed to connect to accounts API", err, map[string]interface{}{"api_url": *apiURL})
		os.Exit(1)
	}

	if *username != "" {
		if _, err := c.Login(ctx, *username, *password); err != nil {
			log.Error("Login failed", err, map[string]interface{}{"username": *username})
			os.Exit(1)
		}
	}

	log.Info("Connected to accounts API", map[string]interface{}{
		"api_url":       *apiURL,
		"authenticated": c.Token() != "",
	})

	server := mcp.NewServer(c, log)
	if err := server.Start(ctx); err != nil {
		log.Error("MCP server error", err)
		os.Exit(1)
	}
	log.Info("Accounts MCP server shutdown complete")
}
