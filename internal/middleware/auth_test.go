package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/task-tracker-api/internal/auth"
	"github.com/BuzzLyutic/task-tracker-api/internal/model"
)

func echoActor(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	json.NewEncoder(w).Encode(actor)
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	return body["message"].(string)
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-secret", time.Hour)
	other := auth.NewTokenManager("another-secret", time.Hour)

	user := model.User{ID: "u1", Role: model.RoleUser}
	valid, err := tokens.Issue(user)
	require.NoError(t, err)
	forged, err := other.Issue(user)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantCode   int
		wantMsg    string
		wantUserID string
	}{
		{name: "no header", header: "", wantCode: http.StatusUnauthorized, wantMsg: "Access denied. No token provided"},
		{name: "wrong scheme", header: "Basic " + valid, wantCode: http.StatusUnauthorized, wantMsg: "Access denied. No token provided"},
		{name: "empty bearer", header: "Bearer ", wantCode: http.StatusUnauthorized, wantMsg: "Access denied. No token provided"},
		{name: "garbage token", header: "Bearer not.a.jwt", wantCode: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "foreign signature", header: "Bearer " + forged, wantCode: http.StatusUnauthorized, wantMsg: "Invalid token"},
		{name: "valid token", header: "Bearer " + valid, wantCode: http.StatusOK, wantUserID: "u1"},
	}

	handler := Authenticate(tokens)(http.HandlerFunc(echoActor))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeMessage(t, rec))
				return
			}
			var actor model.Actor
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&actor))
			assert.Equal(t, tt.wantUserID, actor.UserID)
			assert.Equal(t, model.RoleUser, actor.Role)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(echoActor))

	t.Run("user is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/admin/stats", nil)
		req = req.WithContext(WithActor(req.Context(), model.Actor{UserID: "u1", Role: model.RoleUser}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Access denied. Admin only", decodeMessage(t, rec))
	})

	t.Run("missing actor is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/admin/stats", nil)
		req = req.WithContext(WithActor(req.Context(), model.Actor{UserID: "a1", Role: model.RoleAdmin}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
