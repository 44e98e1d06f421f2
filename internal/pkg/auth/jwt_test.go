package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestService(ttl time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", TokenTTL: ttl, TokenIssuer: "labtrack-test"})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, expiresAt, err := svc.GenerateToken(Identity{ID: 7, Role: "user", Email: "u7@lab.test"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry should be in the future, got %v", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	id := claims.Identity()
	if id.ID != 7 || id.Role != "user" || id.Email != "u7@lab.test" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if claims.Subject != "7" || claims.Issuer != "labtrack-test" {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
}

func TestDefaultTTLIsOneDay(t *testing.T) {
	svc := newTestService(0)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, expiresAt, err := svc.GenerateToken(Identity{ID: 1, Role: "admin", Email: "a@lab.test"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !expiresAt.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h lifetime, got %v", expiresAt.Sub(base))
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService(time.Minute)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.GenerateToken(Identity{ID: 1, Role: "admin", Email: "a@lab.test"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := newTestService(time.Hour).GenerateToken(Identity{ID: 1, Role: "admin", Email: "a@lab.test"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewJWTService(JWTConfig{SecretKey: "another-secret"})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, Role: "admin", Email: "a@lab.test"}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := newTestService(time.Hour).ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenMalformed(t *testing.T) {
	svc := newTestService(time.Hour)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.ValidateToken(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer abc":         "abc",
		"abc.def.ghi":        "abc.def.ghi",
		"  Bearer  xyz ":     "xyz",
		"":                   "",
	}
	for in, want := range cases {
		if got := ExtractBearerToken(in); got != want {
			t.Errorf("ExtractBearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
