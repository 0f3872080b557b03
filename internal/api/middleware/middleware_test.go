package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/gifbox/internal/api/middleware"
	"github.com/stretchr/testify/assert"
)

func TestQueryToken(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "query only", url: "/ws?token=abc", want: "Bearer abc"},
		{name: "header wins", url: "/ws?token=abc", header: "Bearer xyz", want: "Bearer xyz"},
		{name: "neither", url: "/ws", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := middleware.QueryToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantStatus int
		wantOrigin string
	}{
		{"listed origin", []string{"https://a.example"}, "https://a.example", http.MethodPost, http.StatusTeapot, "https://a.example"},
		{"unlisted origin", []string{"https://a.example"}, "https://b.example", http.MethodPost, http.StatusTeapot, ""},
		{"wildcard", []string{"*"}, "https://b.example", http.MethodPost, http.StatusTeapot, "*"},
		{"preflight", []string{"https://a.example"}, "https://a.example", http.MethodOptions, http.StatusNoContent, "https://a.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/rpc", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			middleware.CORS(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
