// Package main provides a command line client for the accounts API
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/memtensor/accounts/pkg/client"
	"github.com/memtensor/accounts/pkg/users"
)

const usage = `Usage: accountsctl [flags] <command> [args]

Commands:
  health
  register <full_name> <phone> <email> <username> <password>
  login <username> <password>            prints the token
  create <full_name> <phone> <email> <username> <password>
  get <id>
  list
  update <id> key=value [key=value...]
  delete <id>

Flags:
`

var (
	serverURL = flag.String("server", envOr("ACCOUNTS_SERVER", "http://localhost:8080"), "Accounts API base URL")
	token     = flag.String("token", os.Getenv("ACCOUNTS_TOKEN"), "Bearer token for gated commands")
	timeout   = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{BaseURL: *serverURL, Timeout: *timeout})
	c.SetToken(*token)

	if err := execute(ctx, c, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command specified, use -h for usage information")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "health":
		health, err := c.Health(ctx)
		if health != nil {
			if perr := printJSON(out, health); perr != nil {
				return perr
			}
		}
		return err

	case "register", "create":
		p, err := payloadFromArgs(rest)
		if err != nil {
			return err
		}
		if command == "register" {
			err = c.Register(ctx, p)
		} else {
			err = c.CreateUser(ctx, p)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "User created successfully")
		return nil

	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("login requires <username> <password>")
		}
		result, err := c.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Token)
		return nil

	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("get requires <id>")
		}
		user, err := c.GetUser(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "list":
		list, err := c.ListUsers(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, list)

	case "update":
		if len(rest) < 2 {
			return fmt.Errorf("update requires <id> key=value [key=value...]")
		}
		patch, err := patchFromArgs(rest[1:])
		if err != nil {
			return err
		}
		user, err := c.UpdateUser(ctx, rest[0], patch)
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("delete requires <id>")
		}
		if err := c.DeleteUser(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(out, "User deleted successfully")
		return nil

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func payloadFromArgs(args []string) (users.RegistrationPayload, error) {
	if len(args) != 5 {
		return users.RegistrationPayload{}, fmt.Errorf("expected <full_name> <phone> <email> <username> <password>")
	}
	return users.RegistrationPayload{
		FullName: args[0],
		Phone:    args[1],
		Email:    args[2],
		Username: args[3],
		Password: args[4],
	}, nil
}

func patchFromArgs(args []string) (map[string]interface{}, error) {
	patch := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", arg)
		}
		patch[key] = value
	}
	return patch, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
