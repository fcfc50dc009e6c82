// Package mcp exposes the accounts API as MCP (Model Context Protocol) tools
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/memtensor/accounts/pkg/client"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/users"
)

// Version is reported in the MCP handshake
const Version = "1.0.0"

// AccountsClient is the subset of the HTTP client the tools call
type AccountsClient interface {
	Health(ctx context.Context) (*client.Health, error)
	Register(ctx context.Context, payload users.RegistrationPayload) error
	Login(ctx context.Context, username, password string) (*client.LoginResult, error)
	CreateUser(ctx context.Context, payload users.RegistrationPayload) error
	GetUser(ctx context.Context, id string) (*users.User, error)
	ListUsers(ctx context.Context) ([]users.User, error)
	UpdateUser(ctx context.Context, id string, patch map[string]interface{}) (*users.User, error)
	DeleteUser(ctx context.Context, id string) error
}

var _ AccountsClient = (*client.Client)(nil)

// Server represents the accounts MCP server
type Server struct {
	accounts AccountsClient
	logger   interfaces.Logger
	server   *server.MCPServer
	tools    map[string]string
}

// NewServer creates an MCP server whose tools call the accounts API
func NewServer(accounts AccountsClient, logger interfaces.Logger) *Server {
	s := &Server{
		accounts: accounts,
		logger:   logger,
		tools:    make(map[string]string),
		server: server.NewMCPServer(
			"Accounts MCP Server",
			Version,
			server.WithToolCapabilities(true),
		),
	}
	s.setupTools()
	return s
}

// Start serves MCP over stdio until stdin closes
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting accounts MCP server", map[string]interface{}{
		"transport": "stdio",
		"version":   Version,
	})
	return server.ServeStdio(s.server)
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.server
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools[tool.Name] = tool.Description
	s.server.AddTool(tool, handler)
}

func registrationParams(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("full_name", mcp.Required(), mcp.Description("Full name")),
		mcp.WithString("phone", mcp.Required(), mcp.Description("Exactly ten digits")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Email address")),
		mcp.WithString("username", mcp.Required(), mcp.Description("Letters and digits only")),
		mcp.WithString("password", mcp.Required(), mcp.Description("At least six characters")),
	)
}

// setupTools configures all available MCP tools
func (s *Server) setupTools() {
	s.addTool(mcp.NewTool("health_check",
		mcp.WithDescription("Check the health status of the accounts API"),
	), s.handleHealthCheck)

	s.addTool(mcp.NewTool("register_user", registrationParams(
		mcp.WithDescription("Register a new account through public self-service registration"),
	)...), s.handleRegister)

	s.addTool(mcp.NewTool("login",
		mcp.WithDescription("Log in; the token is used by every later tool call"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Account username")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
	), s.handleLogin)

	s.addTool(mcp.NewTool("create_user", registrationParams(
		mcp.WithDescription("Create an account on behalf of the logged-in caller"),
	)...), s.handleCreateUser)

	s.addTool(mcp.NewTool("get_user",
		mcp.WithDescription("Fetch one account by id"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Account id (UUID)")),
	), s.handleGetUser)

	s.addTool(mcp.NewTool("list_users",
		mcp.WithDescription("List every account; requires the super_admin role"),
	), s.handleListUsers)

	s.addTool(mcp.NewTool("update_user",
		mcp.WithDescription("Patch account fields; requires the super_admin role"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Account id (UUID)")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Columns to change, e.g. {\"role\": \"admin\"}")),
	), s.handleUpdateUser)

	s.addTool(mcp.NewTool("delete_user",
		mcp.WithDescription("Delete an account; requires the admin role"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Account id (UUID)")),
	), s.handleDeleteUser)

	s.addTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List all available MCP tools with their descriptions"),
	), s.handleListTools)
}

// failure reports err inside the tool result so the model can read it
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("MCP tool failed", map[string]interface{}{
		"tool":  tool,
		"error": err.Error(),
	})

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed (HTTP %d): %s", tool, apiErr.StatusCode, apiErr.Message))
	}
	return mcp.NewToolResultErrorFromErr(tool+" failed", err)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func registrationPayload(request mcp.CallToolRequest) users.RegistrationPayload {
	return users.RegistrationPayload{
		FullName: request.GetString("full_name", ""),
		Phone:    request.GetString("phone", ""),
		Email:    request.GetString("email", ""),
		Username: request.GetString("username", ""),
		Password: request.GetString("password", ""),
	}
}

func (s *Server) handleHealthCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	health, err := s.accounts.Health(ctx)
	if err != nil && health == nil {
		return s.failure("health_check", err), nil
	}
	return jsonResult(health)
}

func (s *Server) handleRegister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.accounts.Register(ctx, registrationPayload(request)); err != nil {
		return s.failure("register_user", err), nil
	}
	return mcp.NewToolResultText("User created successfully"), nil
}

func (s *Server) handleLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := request.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	password, err := request.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.accounts.Login(ctx, username, password)
	if err != nil {
		return s.failure("login", err), nil
	}
	if result.User == nil {
		return mcp.NewToolResultText("Logged in"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Logged in as %s (role %s) until %s",
		result.User.Username, result.User.Role, result.ExpiresAt.Format("2006-01-02 15:04:05 MST"))), nil
}

func (s *Server) handleCreateUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.accounts.CreateUser(ctx, registrationPayload(request)); err != nil {
		return s.failure("create_user", err), nil
	}
	return mcp.NewToolResultText("User created successfully"), nil
}

func (s *Server) handleGetUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	user, err := s.accounts.GetUser(ctx, id)
	if err != nil {
		return s.failure("get_user", err), nil
	}
	if user == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No account with id %s", id)), nil
	}
	return jsonResult(user)
}

func (s *Server) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.accounts.ListUsers(ctx)
	if err != nil {
		return s.failure("list_users", err), nil
	}
	if list == nil {
		list = []users.User{}
	}
	return jsonResult(list)
}

func (s *Server) handleUpdateUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, ok := request.GetArguments()["fields"].(map[string]interface{})
	if !ok || len(fields) == 0 {
		return mcp.NewToolResultError("fields must be a non-empty object"), nil
	}

	user, err := s.accounts.UpdateUser(ctx, id, fields)
	if err != nil {
		return s.failure("update_user", err), nil
	}
	if user == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No account with id %s", id)), nil
	}
	return jsonResult(user)
}

func (s *Server) handleDeleteUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.accounts.DeleteUser(ctx, id); err != nil {
		return s.failure("delete_user", err), nil
	}
	return mcp.NewToolResultText("User deleted successfully"), nil
}

func (s *Server) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, s.tools[name])
	}
	return mcp.NewToolResultText(b.String()), nil
}
