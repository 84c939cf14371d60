package response

import (
	"errors"
	"net/http"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
}

func Success(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   message,
	})
}

func ErrorWithCode(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

func ValidationErrors(c *gin.Context, errors []ValidationError) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errors,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	Success(c, http.StatusCreated, message, data)
}

func OK(c *gin.Context, message string, data interface{}) {
	Success(c, http.StatusOK, message, data)
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// FromError renders a domain error with its HTTP status and a stable code.
// Storage details are never echoed back to the client.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDestination):
		ErrorWithCode(c, http.StatusBadRequest, "invalid_destination", domain.ErrInvalidDestination.Error())
	case errors.Is(err, domain.ErrInvalidAlias):
		ErrorWithCode(c, http.StatusBadRequest, "invalid_alias", domain.ErrInvalidAlias.Error())
	case errors.Is(err, domain.ErrAliasTaken):
		ErrorWithCode(c, http.StatusConflict, "alias_taken", domain.ErrAliasTaken.Error())
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		ErrorWithCode(c, http.StatusServiceUnavailable, "code_space_exhausted", domain.ErrCodeSpaceExhausted.Error())
	case errors.Is(err, domain.ErrNotFound):
		ErrorWithCode(c, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		ErrorWithCode(c, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error())
	default:
		ErrorWithCode(c, http.StatusInternalServerError, "storage_error", "internal server error")
	}
}
