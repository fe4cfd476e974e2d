package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/auth"
	"github.com/heroarc/heroarc/internal/model"
)

// newRoutingServer builds a full server with the real middleware chain and
// route table but no database. Requests that fail validation, auth, or role
// checks never reach a service, which is exactly the surface these tests
// exercise.
func newRoutingServer(t *testing.T) (*Server, *auth.JWTManager) {
	t.Helper()
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	srv := New(ServerConfig{Handlers: HandlersDeps{
		JWTMgr:              mgr,
		Logger:              testLogger(),
		MaxRequestBodyBytes: 1 << 20,
	}})
	return srv, mgr
}

func bearerToken(t *testing.T, mgr *auth.JWTManager, role model.UserRole) string {
	t.Helper()
	token, _, err := mgr.IssueToken(model.User{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Email:       "mover@example.com",
		Role:        role,
	})
	require.NoError(t, err)
	return token
}

func doMove(srv *Server, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var body model.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMoveTaskRouteRequiresAuth(t *testing.T) {
	srv, _ := newRoutingServer(t)

	rec := doMove(srv, fmt.Sprintf("/v1/tasks/%s/move", uuid.New()), "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, model.ErrCodeUnauthorized, decodeAPIError(t, rec).Error.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMoveTaskRouteForbidsViewers(t *testing.T) {
	srv, mgr := newRoutingServer(t)
	token := bearerToken(t, mgr, model.RoleViewer)

	rec := doMove(srv, fmt.Sprintf("/v1/tasks/%s/move", uuid.New()), token, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, model.ErrCodeForbidden, decodeAPIError(t, rec).Error.Code)
}

func TestMoveTaskRouteRejectsBadInput(t *testing.T) {
	srv, mgr := newRoutingServer(t)
	token := bearerToken(t, mgr, model.RoleMember)

	cases := []struct {
		name   string
		target string
		body   string
	}{
		{"malformed id", "/v1/tasks/not-a-uuid/move", `{}`},
		{"truncated body", fmt.Sprintf("/v1/tasks/%s/move", uuid.New()), `{"after":`},
		{"unknown field", fmt.Sprintf("/v1/tasks/%s/move", uuid.New()), `{"bogus":1}`},
		{"malformed group id", fmt.Sprintf("/v1/groups/nope/tasks/%s/move", uuid.New()), `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doMove(srv, tc.target, token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, model.ErrCodeInvalidInput, decodeAPIError(t, rec).Error.Code)
		})
	}
}

func TestMoveInitiativeRouteRejectsMalformedID(t *testing.T) {
	srv, mgr := newRoutingServer(t)
	token := bearerToken(t, mgr, model.RoleOwner)

	rec := doMove(srv, "/v1/initiatives/42/move", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.ErrCodeInvalidInput, decodeAPIError(t, rec).Error.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, mgr := newRoutingServer(t)
	token := bearerToken(t, mgr, model.RoleMember)

	req := httptest.NewRequest(http.MethodGet, "/v1/nothing-here", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
