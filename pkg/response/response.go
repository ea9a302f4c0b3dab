package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/naru6be1/PolkaVault/internal/types"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeDuplicateResource = "DUPLICATE_RESOURCE"
	ErrCodeLocked            = "POSITION_LOCKED"
	ErrCodeContention        = "CONTENTION"
)

// Handle maps an engine error to the appropriate HTTP response, or sends
// the data on success.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, types.ErrDuplicatePool), errors.Is(err, gorm.ErrDuplicatedKey):
		Conflict(c, err.Error())
	case errors.Is(err, types.ErrLocked):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   &Error{Code: ErrCodeLocked, Message: err.Error()},
		})
	case errors.Is(err, types.ErrContention):
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Error:   &Error{Code: ErrCodeContention, Message: err.Error()},
		})
	case errors.Is(err, types.ErrInvalidAsset),
		errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrBelowMinimum),
		errors.Is(err, types.ErrInsufficientStake),
		errors.Is(err, types.ErrInsufficientReserve),
		errors.Is(err, types.ErrNothingToClaim):
		BadRequest(c, err.Error())
	default:
		InternalError(c, "An unexpected error occurred")
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeNotFound,
			Message: message,
		},
	})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeBadRequest,
			Message: message,
		},
	})
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeUnauthorized,
			Message: message,
		},
	})
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeForbidden,
			Message: message,
		},
	})
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeInternalError,
			Message: message,
		},
	})
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeDuplicateResource,
			Message: message,
		},
	})
}
