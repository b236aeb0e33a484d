package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func TestBrotli(t *testing.T) {
	large := strings.Repeat("question text ", 200)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name     string
		path     string
		accept   string
		wantBody string
		wantBr   bool
	}{
		{"large compressed", "/large", "gzip, br", large, true},
		{"large with q value", "/large", "br;q=1.0", large, true},
		{"small passes through", "/small", "br", "ok", false},
		{"client without br", "/large", "gzip", large, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept-Encoding", tt.accept)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			gotBr := w.Header().Get("Content-Encoding") == "br"
			if gotBr != tt.wantBr {
				t.Fatalf("Content-Encoding br = %v, want %v", gotBr, tt.wantBr)
			}
			var body io.Reader = w.Body
			if gotBr {
				body = brotli.NewReader(w.Body)
			}
			got, err := io.ReadAll(body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tt.wantBody {
				t.Errorf("body length %d, want %d", len(got), len(tt.wantBody))
			}
		})
	}
}
