package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/model"
)

func serveScoped(mw func(http.Handler) http.Handler, principal *model.AuthContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws_1/credentials", nil)
	if principal != nil {
		req = req.WithContext(auth.ContextWithAuth(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestRequireScope(t *testing.T) {
	tests := []struct {
		name       string
		mw         func(http.Handler) http.Handler
		scopes     []string
		wantStatus int
	}{
		{"read with read", RequireRead(), []string{model.ScopeRead}, http.StatusOK},
		{"write with read", RequireWrite(), []string{model.ScopeRead}, http.StatusForbidden},
		{"upload with upload", RequireUpload(), []string{model.ScopeUpload}, http.StatusOK},
		{"upload with write", RequireUpload(), []string{model.ScopeWrite}, http.StatusForbidden},
		{"admin covers write", RequireWrite(), []string{model.ScopeAdmin}, http.StatusOK},
		{"admin covers upload", RequireUpload(), []string{model.ScopeAdmin}, http.StatusOK},
		{"admin route with write", RequireAdmin(), []string{model.ScopeRead, model.ScopeWrite}, http.StatusForbidden},
		{"any of", RequireScope(model.ScopeWrite, model.ScopeUpload), []string{model.ScopeUpload}, http.StatusOK},
		{"no scopes", RequireRead(), nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveScoped(tt.mw, &model.AuthContext{UserID: "user_1", Scopes: tt.scopes})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireScope_Unauthenticated(t *testing.T) {
	rec := serveScoped(RequireRead(), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
		t.Errorf("body = %s, want UNAUTHORIZED code", rec.Body.String())
	}
}

func TestRequireScope_ForbiddenNamesScopes(t *testing.T) {
	rec := serveScoped(RequireScope(model.ScopeWrite, model.ScopeAdmin), &model.AuthContext{Scopes: []string{model.ScopeRead}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "write or admin") {
		t.Errorf("body = %s, want required scopes named", rec.Body.String())
	}
}
