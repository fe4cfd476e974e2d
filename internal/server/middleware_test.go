package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/auth"
	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/service/groups"
	"github.com/heroarc/heroarc/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// Generated when absent.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	// Propagated when the client supplies one.
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", seen)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAuthMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	handler := authMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body model.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.ErrCodeUnauthorized, body.Error.Code)
}

func TestAuthMiddlewareSkipsPublicPaths(t *testing.T) {
	reached := false
	handler := authMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, reached)
}

func TestRequireRole(t *testing.T) {
	handler := requireRole(model.RoleMember)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	withRole := func(role model.UserRole) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)
		return req.WithContext(ctxutil.WithClaims(req.Context(), &auth.Claims{
			UserID:      uuid.New(),
			WorkspaceID: uuid.New(),
			Role:        role,
		}))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withRole(model.RoleViewer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withRole(model.RoleMember))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withRole(model.RoleOwner))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// No claims at all.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWriteServiceErrorTranslation(t *testing.T) {
	h := &Handlers{logger: testLogger()}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", model.Invalidf("title is required"), http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"wrapped validation", fmt.Errorf("tasks: %w", model.Invalidf("title is required")), http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"not found", storage.ErrNotFound, http.StatusNotFound, model.ErrCodeNotFound},
		{"bad anchor", ordering.ErrEntityNotFound, http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"duplicate ordering", ordering.ErrAlreadyOrdered, http.StatusConflict, model.ErrCodeConflict},
		{"kind mismatch", groups.ErrKindMismatch, http.StatusBadRequest, model.ErrCodeInvalidInput},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, model.ErrCodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil), tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body model.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Error.Code)
		})
	}
}

func TestDecodeJSONLimitsAndUnknownFields(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks",
		strings.NewReader(`{"title":"ok","bogus":1}`))
	var p payload
	err := decodeJSON(httptest.NewRecorder(), req, &p, 1<<20)
	require.Error(t, err, "unknown fields should be rejected")

	req = httptest.NewRequest(http.MethodPost, "/v1/tasks",
		strings.NewReader(`{"title":"a very long body"}`))
	err = decodeJSON(httptest.NewRecorder(), req, &p, 4)
	require.Error(t, err, "oversized bodies should be rejected")
}
