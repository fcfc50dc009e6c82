package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/memtensor/accounts/pkg/errors"
)

var authFalse = false

// storeFailure selects the response written when the store fails
type storeFailure int

const (
	// registrationFailure answers 400 {message, status:"error"}
	registrationFailure storeFailure = iota
	// lookupFailure answers 400 {message}
	lookupFailure
	// managementFailure answers 500 {message}
	managementFailure
)

// respondError writes err as JSON. onStore decides the shape of store failures;
// every other error type maps the same way on all routes.
func (s *Server) respondError(c *gin.Context, err error, onStore storeFailure) {
	requestID := c.GetString("request_id")

	ae := apperrors.GetAccountsError(err)
	if ae == nil {
		s.logger.Error("Unhandled error", err, map[string]interface{}{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: err.Error()})
		return
	}

	switch ae.Type {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeDuplicate:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:   ae.Message,
			ErrorCode: string(ae.Code),
			Status:    "error",
		})

	case apperrors.ErrorTypeUnauthorized:
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message:   ae.Message,
			ErrorCode: string(ae.Code),
			Auth:      &authFalse,
		})

	case apperrors.ErrorTypePersistence:
		s.logger.Error("Store operation failed", ae.Cause, map[string]interface{}{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		})
		switch onStore {
		case registrationFailure:
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: ae.Message, Status: "error"})
		case lookupFailure:
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: ae.Message})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Message: ae.Message})
		}

	case apperrors.ErrorTypeRateLimited:
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Message:   ae.Message,
			ErrorCode: string(ae.Code),
			Status:    "error",
		})

	default:
		s.logger.Error("Internal error", err, map[string]interface{}{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: ae.Message})
	}
}

// bindError reports a malformed request body
func (s *Server) bindError(c *gin.Context, err error) {
	s.respondError(c, apperrors.NewInvalidInputError("Invalid request format: "+err.Error()), registrationFailure)
}
