package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
	"github.com/quantumlab/labtrack/internal/pkg/validation"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Ordered: the first sentinel found in the error chain wins
var errorMappings = []errorMapping{
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "No token provided"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid or expired token"},
	{apperrors.ErrInvalidCredentials, http.StatusBadRequest, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is inactive"},
	{apperrors.ErrExperimentApproved, http.StatusForbidden, dto.ErrorCodeExperimentLocked, "Experiment is locked"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Forbidden"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{apperrors.ErrFileTooLarge, http.StatusBadRequest, dto.ErrorCodeFileTooLarge, "File is too large"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrInvalidTransition, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid status value"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
}

// HandleAPIError maps a service error onto the standard error envelope.
// Unknown errors become 500 and carry the raw error text in details.
func HandleAPIError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, validation.Message(fe)).
			WithField(fe.Field()).
			WithSeverity(dto.ErrorSeverityWarning)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := apperrors.Message(err)
		if message == "" {
			message = m.message
		}
		errorDetail := dto.NewErrorDetail(m.code, message)
		if m.status < http.StatusInternalServerError {
			errorDetail = errorDetail.WithSeverity(dto.ErrorSeverityWarning)
		}

		var ce *apperrors.CustomError
		if errors.As(err, &ce) && len(ce.Details) > 0 {
			if field, ok := ce.Details["field"].(string); ok {
				errorDetail = errorDetail.WithField(field)
			}
			errorDetail = errorDetail.WithDetails(ce.Details)
		}

		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(errorDetail))
		return
	}

	logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("Unhandled error")
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical).
		WithDetails(err.Error())
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
}

// HandleBindError reports a request that could not be decoded or failed validation
func HandleBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		HandleAPIError(c, err)
		return
	}
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid request format").
		WithSeverity(dto.ErrorSeverityWarning).
		WithDetails(err.Error())
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}
