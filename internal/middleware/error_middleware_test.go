package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

func serveError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) { HandleAPIError(c, err) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestHandleAPIErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"approved lock", apperrors.NewCustomError(apperrors.ErrExperimentApproved, "locked for good"), http.StatusForbidden, dto.ErrorCodeExperimentLocked, "locked for good"},
		{"forbidden", apperrors.NewForbiddenError("Forbidden"), http.StatusForbidden, dto.ErrorCodeForbidden, "Forbidden"},
		{"not found", apperrors.NewResourceNotFoundError("File not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "File not found"},
		{"user not found default", apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
		{"duplicate email", apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
		{"credentials", apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "Invalid credentials"), http.StatusBadRequest, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
		{"inactive", apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is inactive"},
		{"too large", apperrors.NewCustomError(apperrors.ErrFileTooLarge, "File is too large. Max size is 50MB."), http.StatusBadRequest, dto.ErrorCodeFileTooLarge, "File is too large. Max size is 50MB."},
		{"wrapped bad request", fmt.Errorf("ctx: %w", apperrors.NewBadRequestError("At least one field is required")), http.StatusBadRequest, dto.ErrorCodeBadRequest, "At least one field is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serveError(t, tc.err)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			resp := decodeError(t, w)
			if resp.Success || resp.Error == nil {
				t.Fatalf("malformed envelope: %s", w.Body.String())
			}
			if resp.Error.Code != tc.code || resp.Message != tc.message {
				t.Fatalf("got code=%s message=%q", resp.Error.Code, resp.Message)
			}
		})
	}
}

func TestHandleAPIErrorValidationField(t *testing.T) {
	w := serveError(t, apperrors.NewValidationError("title", "title is required"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Message != "title is required" || resp.Error.Field != "title" {
		t.Fatalf("unexpected %+v", resp.Error)
	}
}

func TestHandleAPIErrorUnknownIsInternal(t *testing.T) {
	w := serveError(t, errors.New("connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("raw error should be carried in details: %s", w.Body.String())
	}
}
