package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appAuth "github.com/quantumlab/labtrack/internal/app/auth"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
)

func newTestAuth(t *testing.T) (*AuthMiddleware, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenTTL: time.Hour, TokenIssuer: "labtrack"})
	return NewAuthMiddleware(jwtService, appAuth.NewDefaultPolicy()), jwtService
}

func issue(t *testing.T, jwtService *auth.JWTService, id int64, role string) string {
	t.Helper()
	token, _, err := jwtService.GenerateToken(auth.Identity{ID: id, Role: role, Email: "u@lab.local"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func whoAmI(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.JSON(http.StatusOK, gin.H{
		"id":   c.GetInt64(ContextUserID),
		"role": c.GetString(ContextRole),
		"body": string(body),
	})
}

func TestJWTAuthTokenSources(t *testing.T) {
	m, jwtService := newTestAuth(t)
	token := issue(t, jwtService, 7, "user")

	router := gin.New()
	router.Use(m.JWTAuth())
	router.Any("/me", whoAmI)

	jsonBody := `{"token":"` + token + `","content":"hi"}`
	cases := []struct {
		name string
		req  func() *http.Request
		body string
	}{
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			return r
		}, ""},
		{"json body", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(jsonBody))
			r.Header.Set("Content-Type", "application/json")
			return r
		}, jsonBody},
		{"form body", func() *http.Request {
			form := url.Values{"token": {token}}
			r := httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}, ""},
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
		}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.req())
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var got struct {
				ID   int64  `json:"id"`
				Role string `json:"role"`
				Body string `json:"body"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ID != 7 || got.Role != "user" {
				t.Fatalf("identity = %+v", got)
			}
			if tc.body != "" && got.Body != tc.body {
				t.Fatalf("handler saw body %q, want it restored", got.Body)
			}
		})
	}
}

func TestJWTAuthRejects(t *testing.T) {
	m, _ := newTestAuth(t)
	router := gin.New()
	router.Use(m.JWTAuth())
	router.GET("/me", whoAmI)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized || decodeError(t, w).Message != "No token provided" {
		t.Fatalf("missing token: %d %s", w.Code, w.Body.String())
	}

	other := auth.NewJWTService(auth.JWTConfig{SecretKey: "another-secret"})
	forged := issue(t, other, 1, "admin")
	for _, token := range []string{forged, "not-a-jwt"} {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized || decodeError(t, w).Message != "Invalid or expired token" {
			t.Fatalf("token %q: %d %s", token, w.Code, w.Body.String())
		}
	}
}

func TestRequireCapabilities(t *testing.T) {
	m, jwtService := newTestAuth(t)
	router := gin.New()
	router.Use(m.JWTAuth())
	router.GET("/admin/logs", m.Require(appAuth.CapAdminAccess, appAuth.CapLogsRead), whoAmI)
	router.GET("/user/experiments", m.Require(appAuth.CapExperimentsOwn), whoAmI)

	cases := []struct {
		role, path string
		want       int
	}{
		{"admin", "/admin/logs", http.StatusOK},
		{"user", "/admin/logs", http.StatusForbidden},
		{"user", "/user/experiments", http.StatusOK},
		{"admin", "/user/experiments", http.StatusForbidden},
		{"guest", "/user/experiments", http.StatusForbidden},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, tc.path, nil)
		r.Header.Set("Authorization", "Bearer "+issue(t, jwtService, 1, tc.role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		if w.Code != tc.want {
			t.Errorf("%s %s: status %d, want %d", tc.role, tc.path, w.Code, tc.want)
		}
		if tc.want == http.StatusForbidden && decodeError(t, w).Message != "Forbidden" {
			t.Errorf("%s %s: message %q", tc.role, tc.path, decodeError(t, w).Message)
		}
	}
}
