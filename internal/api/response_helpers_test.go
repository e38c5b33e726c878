// internal/api/response_helpers_test.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccessEnvelope(t *testing.T) {
	c, w := testContext()
	c.Set("request_id", "req-123")

	NewResponseHelper().Success(c, map[string]string{"hello": "world"}, "done")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Message)
	assert.Equal(t, "req-123", resp.RequestID)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestErrorEnvelope(t *testing.T) {
	c, w := testContext()

	NewResponseHelper().BadRequest(c, "bad input", "field x is required")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorBadRequest, resp.Error.Code)
	assert.Equal(t, "bad input", resp.Error.Message)
	assert.Equal(t, "field x is required", resp.Error.Details)
}

func TestAppErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperrors.NewNotFoundError("gone", nil), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.NewUnauthenticatedError("sign in"), http.StatusUnauthorized, "SIGN_IN_REQUIRED"},
		{apperrors.NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperrors.NewGenerationError("tutor down", nil), http.StatusBadGateway, "GENERATION_FAILED"},
		{apperrors.NewConflictError("busy", nil), http.StatusConflict, "CONFLICT"},
		{apperrors.NewPersistenceError("disk", nil), http.StatusInternalServerError, "PERSISTENCE_FAILED"},
		{errors.New("plain"), http.StatusInternalServerError, ErrorInternalError},
	}

	for _, tc := range cases {
		c, w := testContext()
		NewResponseHelper().AppError(c, tc.err)

		assert.Equal(t, tc.wantStatus, w.Code, "error %v", tc.err)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tc.wantCode, resp.Error.Code)
	}
}

func TestExportResponseHeaders(t *testing.T) {
	c, w := testContext()

	NewResponseHelper().ExportResponse(c, &models.ExportResult{
		FileName:   "algebra-20260101-120000.md",
		Format:     "markdown",
		Content:    "# Algebra",
		ExportedAt: time.Now(),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=algebra-20260101-120000.md", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Equal(t, "# Algebra", w.Body.String())
}
