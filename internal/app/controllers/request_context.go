// Package controllers handles HTTP request handling
package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/middleware"
)

// actorFrom builds the acting identity from values set by the auth middleware
func actorFrom(ctx *gin.Context) services.Actor {
	return services.Actor{
		ID:        ctx.GetInt64(middleware.ContextUserID),
		Role:      models.Role(ctx.GetString(middleware.ContextRole)),
		Email:     ctx.GetString(middleware.ContextEmail),
		IP:        ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}

// pathID parses a numeric path parameter, writing a 400 when it is malformed
func pathID(ctx *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label+" ID").
			WithField(name).
			WithDetails("ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// requestBaseURL is the scheme and host the caller used to reach us. The scheme from
// X-Forwarded-Proto only counts when the ForwardedScheme middleware accepted it.
func requestBaseURL(ctx *gin.Context) string {
	scheme := ctx.GetString(middleware.ContextScheme)
	if scheme == "" {
		scheme = "http"
		if ctx.Request.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + ctx.Request.Host
}

// multipartFile reads a single multipart field once a service asks for it. The
// request body is capped slightly above limit so oversized uploads fail while parsing.
type multipartFile struct {
	ctx   *gin.Context
	field string
	limit int64
}

func formUpload(ctx *gin.Context, field string, limit int64) services.UploadSource {
	return &multipartFile{ctx: ctx, field: field, limit: limit}
}

// Receive parses the form. A missing field yields a nil upload.
func (m *multipartFile) Receive() (*services.Upload, error) {
	req := m.ctx.Request
	req.Body = http.MaxBytesReader(m.ctx.Writer, req.Body, m.limit+1<<20)

	header, err := m.ctx.FormFile(m.field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.FileTooLargeError(m.limit)
		}
		return nil, nil
	}
	return &services.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}, nil
}
