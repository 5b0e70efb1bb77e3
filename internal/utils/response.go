// internal/utils/response.go
package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse represents standard API response structure
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents error information
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "NOT_CONNECTED",
	http.StatusUnprocessableEntity: "COMMAND_REJECTED",
	http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
	http.StatusBadGateway:          "CONTROLLER_UNREACHABLE",
	http.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

// ErrorCode returns the envelope code for an HTTP status
func ErrorCode(status int) string {
	if code, ok := errorCodes[status]; ok {
		return code
	}
	return "UNKNOWN_ERROR"
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	write(c, status, APIResponse{Success: true, Message: message, Data: data})
}

// ErrorResponse sends an error response; err, when set, becomes the details
func ErrorResponse(c *gin.Context, status int, message string, err error) {
	apiErr := &APIError{Code: ErrorCode(status), Message: message}
	if err != nil {
		apiErr.Details = err.Error()
	}
	write(c, status, APIResponse{Message: message, Error: apiErr})
}

// FailureResponse sends an error response that still carries a payload,
// used when a controller operation ran but did not succeed
func FailureResponse(c *gin.Context, status int, message string, data interface{}) {
	write(c, status, APIResponse{
		Message: message,
		Data:    data,
		Error:   &APIError{Code: ErrorCode(status), Message: message},
	})
}

func write(c *gin.Context, status int, resp APIResponse) {
	resp.Timestamp = time.Now()
	resp.RequestID = c.GetString("request_id")
	c.JSON(status, resp)
}
