package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teilomillet/quill/config"
)

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{APIKeys: []string{"secret-1", " ", "secret-2"}})
	assert.True(t, a.Enabled())

	handler := a.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "missing key", want: http.StatusUnauthorized},
		{name: "x-api-key", headers: map[string]string{"X-API-Key": "secret-1"}, want: http.StatusOK},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer secret-2"}, want: http.StatusOK},
		{name: "lower case bearer", headers: map[string]string{"Authorization": "bearer secret-2"}, want: http.StatusOK},
		{name: "wrong key", headers: map[string]string{"X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "basic auth is not a key", headers: map[string]string{"Authorization": "Basic c2VjcmV0LTE="}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/humanize", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "authentication_error")
			}
		})
	}
}

func TestAuthenticatorUpdate(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{})
	assert.False(t, a.Enabled())

	handler := a.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	a.Update(config.AuthConfig{APIKeys: []string{"k"}})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
