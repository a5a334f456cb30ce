package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidationError reports malformed or missing input. It is raised before
// any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a resource that does not exist or is not owned by
// the caller's organization. The two cases are indistinguishable on purpose.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(resource string, id uint64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// DataAccessError wraps a failure of the backing store
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed during %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError wraps err as a DataAccessError for op
func NewDataAccessError(op string, err error) *DataAccessError {
	return &DataAccessError{Op: op, Err: err}
}

// AuthenticationError reports a missing or invalid session
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// NewAuthenticationError creates an AuthenticationError
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

func IsDataAccess(err error) bool {
	var target *DataAccessError
	return stderrors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return stderrors.As(err, &target)
}

// StatusFor maps a domain error to its HTTP status code
func StatusFor(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAuthentication(err):
		return http.StatusUnauthorized
	case IsDataAccess(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithDomainError writes the response for a domain error. Store
// details are not leaked to the client.
func RespondWithDomainError(c *gin.Context, err error) {
	var validationErr *ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		details := map[string]string{}
		if validationErr.Field != "" {
			details["field"] = validationErr.Field
		}
		BadRequestWithDetails(c, validationErr.Error(), details)
	case IsNotFound(err):
		NotFound(c, err.Error())
	case IsAuthentication(err):
		Unauthorized(c, err.Error())
	case IsDataAccess(err):
		RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeDataAccess, "The data store is temporarily unavailable"))
	default:
		InternalError(c, "")
	}
}
