package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/memtensor/accounts/pkg/users"
)

// bearerToken extracts the credential from the Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// root greets API clients
// @Summary API root
// @Tags meta
// @Produce json
// @Success 200 {object} MessageResponse
// @Router / [get]
func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "Welcome to the API"})
}

// healthCheck provides a health check endpoint
// @Summary Health Check
// @Description Check the health status of the accounts API and its store
// @Tags meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	status := http.StatusOK
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Checks:    map[string]string{"database": "ok"},
	}

	if err := s.accounts.HealthCheck(c.Request.Context()); err != nil {
		s.logger.Warn("Health check failed", map[string]interface{}{"error": err.Error()})
		health.Status = "unhealthy"
		health.Checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

// register handles public self-service registration
// @Summary Register an account
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	if _, err := s.accounts.Register(c.Request.Context(), req.payload()); err != nil {
		s.respondError(c, err, registrationFailure)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User created successfully"})
}

// login exchanges a username and password for a bearer token
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	result, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err, managementFailure)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// createUser registers an account on behalf of the authenticated caller
// @Summary Create an account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterRequest true "Account details"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /users [post]
func (s *Server) createUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	if _, err := s.accounts.CreateUser(c.Request.Context(), bearerToken(c), req.payload()); err != nil {
		s.respondError(c, err, registrationFailure)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User created successfully"})
}

// getUser fetches a single account; no credential is required
// @Summary Get an account
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} users.User
// @Failure 400 {object} ErrorResponse
// @Router /users/{id} [get]
func (s *Server) getUser(c *gin.Context) {
	user, err := s.accounts.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, lookupFailure)
		return
	}

	if user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}

// listUsers returns every account
// @Summary List accounts
// @Description Requires the super_admin role
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} users.User
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	list, err := s.accounts.ListUsers(c.Request.Context(), bearerToken(c))
	if err != nil {
		s.respondError(c, err, managementFailure)
		return
	}

	if list == nil {
		list = []users.User{}
	}
	c.JSON(http.StatusOK, list)
}

// updateUser patches an account
// @Summary Update an account
// @Description Requires the super_admin role. Fields are applied without re-validation.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param patch body object true "Fields to change"
// @Success 200 {object} users.User
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [patch]
func (s *Server) updateUser(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.bindError(c, err)
		return
	}

	user, err := s.accounts.UpdateUser(c.Request.Context(), bearerToken(c), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err, managementFailure)
		return
	}

	if user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}

// deleteUser removes an account
// @Summary Delete an account
// @Description Requires the admin role. Succeeds even when no account matches.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	if err := s.accounts.DeleteUser(c.Request.Context(), bearerToken(c), c.Param("id")); err != nil {
		s.respondError(c, err, managementFailure)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// getMetrics returns the in-process metrics snapshot
// @Summary Metrics
// @Tags meta
// @Produce json
// @Success 200 {object} MetricsResponse
// @Router /metrics [get]
func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, MetricsResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Metrics:   s.metrics.Snapshot(),
	})
}
