package httpresp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"fileshare/server/common/apperr"
)

func TestStatusForKindIsTotal(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:   http.StatusBadRequest,
		apperr.KindUnauthorized: http.StatusUnauthorized,
		apperr.KindForbidden:    http.StatusForbidden,
		apperr.KindNotFound:     http.StatusNotFound,
		apperr.KindExpired:      http.StatusGone,
		apperr.KindStorage:      http.StatusInternalServerError,
		apperr.KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind, http.StatusInternalServerError), kind.String())
	}
}

func TestStatusFromMessage(t *testing.T) {
	cases := []struct {
		message string
		want    int
	}{
		{"File not found", http.StatusNotFound},
		{"File has expired", http.StatusGone},
		{"City is required", http.StatusBadRequest},
		{"invalid expiration", http.StatusBadRequest},
		{"Weather API key not configured", http.StatusUnauthorized},
		{"Unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"disk on fire", http.StatusTeapot},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFromMessage(tc.message, http.StatusTeapot), tc.message)
	}
}

func TestStatusForPrefersKind(t *testing.T) {
	// The message mentions "not found" but the kind says storage.
	err := apperr.Storage("Failed to upload files", errors.New("bucket not found"))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(err, http.StatusInternalServerError))

	assert.Equal(t, http.StatusNotFound, StatusFor(errors.New("row not found"), http.StatusInternalServerError))
}

func TestBinaryHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Binary(c, []byte("hello"), "notes.txt", "text/plain")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="notes.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", w.Body.String())
}

func TestFromErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, apperr.Expired("File has expired"), http.StatusInternalServerError)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"File has expired"}`, w.Body.String())
}
