package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cfg        Config
		path       string
		header     string
		wantStatus int
	}{
		{"disabled", Config{}, "/api/v1/tonight", "", http.StatusOK},
		{"missing header", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "", http.StatusUnauthorized},
		{"wrong token", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "Basic s3cret", http.StatusUnauthorized},
		{"bare token", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "s3cret", http.StatusUnauthorized},
		{"empty bearer", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "Bearer ", http.StatusUnauthorized},
		{"valid token", Config{Enabled: true, Token: "s3cret"}, "/api/v1/tonight", "Bearer s3cret", http.StatusOK},
		{"lower-case scheme", Config{Enabled: true, Token: "s3cret"}, "/api/v1/catalog", "bearer s3cret", http.StatusOK},
		{"health exempt", Config{Enabled: true, Token: "s3cret"}, "/healthz", "", http.StatusOK},
		{"readiness exempt", Config{Enabled: true, Token: "s3cret"}, "/readyz", "", http.StatusOK},
		{"metrics exempt", Config{Enabled: true, Token: "s3cret"}, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Middleware(tt.cfg)(ok).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}
