package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDetailedError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDetailedError(rec, http.StatusBadRequest, "validation failed", map[string]string{
		"price_cents": "must be positive",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Equal(t, "must be positive", resp.Details["price_cents"])
}

func TestWriteErrorMessageOmitsDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFound(rec, "order not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "details")
}

func TestParseJSONOrErrorRejectsBadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))

	var dest map[string]string
	ok := ParseJSONOrError(rec, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=25", nil)
	val, err := ParseQueryInt(req, "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 25, val)

	val, err = ParseQueryInt(req, "offset", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, val)

	req = httptest.NewRequest("GET", "/?limit=lots", nil)
	_, err = ParseQueryInt(req, "limit", 10)
	assert.Error(t, err)
}
