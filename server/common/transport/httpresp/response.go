package httpresp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fileshare/server/common/apperr"
)

const (
	ErrNoFilesUploaded = "No files uploaded"
	ErrInvalidRequest  = "invalid request body"
)

// Envelope is the JSON body of every non-binary API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewSuccessResponse(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func NewMessageResponse(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

func NewErrorResponse(message string) Envelope {
	return Envelope{Success: false, Error: message}
}

func NewHealthResponse(status string, err error) HealthResponse {
	out := HealthResponse{Status: status}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindExpired:      http.StatusGone,
}

// StatusForKind maps every kind to a status. Storage and internal failures
// take the caller's default.
func StatusForKind(kind apperr.Kind, defaultStatus int) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return defaultStatus
}

// StatusFromMessage infers a status from message text. It only applies to
// errors that carry no kind.
func StatusFromMessage(message string, defaultStatus int) int {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found"):
		return http.StatusNotFound
	case strings.Contains(lower, "expired"):
		return http.StatusGone
	case strings.Contains(lower, "required"), strings.Contains(lower, "invalid"):
		return http.StatusBadRequest
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "not configured"):
		return http.StatusUnauthorized
	case strings.Contains(lower, "forbidden"):
		return http.StatusForbidden
	default:
		return defaultStatus
	}
}

func StatusFor(err error, defaultStatus int) int {
	if kind, ok := apperr.KindOf(err); ok {
		return StatusForKind(kind, defaultStatus)
	}
	return StatusFromMessage(err.Error(), defaultStatus)
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, NewSuccessResponse(data))
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, NewErrorResponse(message))
}

func FromError(c *gin.Context, err error, defaultStatus int) {
	c.JSON(StatusFor(err, defaultStatus), NewErrorResponse(err.Error()))
}

// Binary writes data as an attachment download.
func Binary(c *gin.Context, data []byte, fileName, contentType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, data)
}
