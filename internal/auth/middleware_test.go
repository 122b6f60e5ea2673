package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		configToken    string
		authHeader     string
		apiKeyHeader   string
		expectedStatus int
	}{
		{"No token configured skips auth", "", "", "", http.StatusOK},
		{"Valid bearer token", "secret", "Bearer secret", "", http.StatusOK},
		{"Valid X-API-Key", "secret", "", "secret", http.StatusOK},
		{"Invalid bearer token", "secret", "Bearer wrong", "", http.StatusUnauthorized},
		{"Invalid X-API-Key", "secret", "", "wrong", http.StatusUnauthorized},
		{"Missing credentials", "secret", "", "", http.StatusUnauthorized},
		{"Malformed auth header", "secret", "secret", "", http.StatusUnauthorized},
		{"Wrong bearer but valid key", "secret", "Bearer wrong", "secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := AdminMiddleware(&Config{Token: tt.configToken})
			handler := middleware(next)

			req := httptest.NewRequest(http.MethodPost, "/api/galleries/g1/media/upload", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKeyHeader != "" {
				req.Header.Set("X-API-Key", tt.apiKeyHeader)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}
