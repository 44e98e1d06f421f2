package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func forwardedScheme(t *testing.T, trusted []string, remote, proto string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler, err := ForwardedScheme(trusted)
	if err != nil {
		t.Fatalf("ForwardedScheme: %v", err)
	}

	var scheme string
	router := gin.New()
	router.Use(handler)
	router.GET("/", func(c *gin.Context) { scheme = c.GetString(ContextScheme) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	req.Header.Set("X-Forwarded-Proto", proto)
	router.ServeHTTP(httptest.NewRecorder(), req)
	return scheme
}

func TestForwardedScheme(t *testing.T) {
	cases := []struct {
		name    string
		trusted []string
		remote  string
		proto   string
		want    string
	}{
		{"no proxies configured", nil, "10.1.2.3:4000", "https", ""},
		{"spoofed by client", []string{"10.0.0.0/8"}, "203.0.113.9:4000", "https", ""},
		{"trusted cidr", []string{"10.0.0.0/8"}, "10.1.2.3:4000", "HTTPS", "https"},
		{"trusted address", []string{"127.0.0.1"}, "127.0.0.1:4000", "http", "http"},
		{"ipv6 proxy", []string{"::1"}, "[::1]:4000", "https", "https"},
		{"junk scheme", []string{"10.0.0.0/8"}, "10.1.2.3:4000", "javascript", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := forwardedScheme(t, tc.trusted, tc.remote, tc.proto); got != tc.want {
				t.Fatalf("scheme = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestForwardedSchemeRejectsBadProxy(t *testing.T) {
	if _, err := ForwardedScheme([]string{"gateway.internal"}); err == nil {
		t.Fatal("expected error for a hostname")
	}
}
