package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appAuth "github.com/quantumlab/labtrack/internal/app/auth"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

// Context keys set by JWTAuth
const (
	ContextUserID   = "userID"
	ContextRole     = "role"
	ContextEmail    = "email"
	ContextIdentity = "identity"
)

// maxTokenPeek bounds how much of a JSON body is read when looking for a token field
const maxTokenPeek = 64 << 10

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	policy     *appAuth.Policy
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, policy *appAuth.Policy) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		policy:     policy,
	}
}

// JWTAuth resolves the caller's identity. The token is looked up in the Authorization
// header, then a "token" field of the request body, then the "token" query parameter.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := findToken(c)
		if tokenString == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "No token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid or expired token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		identity := claims.Identity()
		c.Set(ContextUserID, identity.ID)
		c.Set(ContextRole, identity.Role)
		c.Set(ContextEmail, identity.Email)
		c.Set(ContextIdentity, identity)

		c.Next()
	}
}

// Require aborts with 403 unless the caller's role holds every capability
func (m *AuthMiddleware) Require(caps ...appAuth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "No token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		decision := m.policy.Evaluate(models.Role(role), caps...)
		if !decision.Allowed {
			logger.Debug().
				Str("role", role).
				Str("required", appAuth.String(caps)).
				Str("reason", decision.Reason).
				Msg("Access denied")
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Forbidden")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

func findToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token := auth.ExtractBearerToken(header); token != "" {
			return token
		}
	}
	if token := tokenFromBody(c); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}

// tokenFromBody reads a "token" field from a JSON or form body. A JSON body is
// restored afterwards so handlers can still bind it.
func tokenFromBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.Method == http.MethodGet {
		return ""
	}

	switch c.ContentType() {
	case gin.MIMEJSON:
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTokenPeek))
		if err != nil {
			return ""
		}
		rest := c.Request.Body
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), rest))

		var body struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(raw, &body) != nil {
			return ""
		}
		return strings.TrimSpace(body.Token)
	case gin.MIMEPOSTForm:
		return strings.TrimSpace(c.PostForm("token"))
	}
	return ""
}
