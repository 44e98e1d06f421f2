package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/filestorage"
	"github.com/rs/zerolog"
)

// DefaultMaxUploadMB bounds experiment attachments when no limit is configured
const DefaultMaxUploadMB = 50

// Upload is an incoming file, independent of the transport that received it
type Upload struct {
	Filename string
	Size     int64
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// UploadSource yields the incoming file. Services call Receive only after the caller
// passed the access checks, so transports can defer reading the request body until then.
// A nil upload with a nil error means no file was sent.
type UploadSource interface {
	Receive() (*Upload, error)
}

// Receive makes an already received upload an UploadSource
func (u *Upload) Receive() (*Upload, error) {
	return u, nil
}

// FileTooLargeError is the error for uploads over limit bytes
func FileTooLargeError(limit int64) error {
	return apperrors.NewCustomError(apperrors.ErrFileTooLarge,
		fmt.Sprintf("File is too large. Max size is %dMB.", limit>>20))
}

func receive(src UploadSource) (*Upload, error) {
	if src == nil {
		return nil, nil
	}
	return src.Receive()
}

// FileService manages experiment attachments
type FileService struct {
	files       FileStore
	guard       *ExperimentGuard
	storage     filestorage.FileStorage
	audit       *AuditService
	maxUploadMB int
	logger      zerolog.Logger
}

// NewFileService creates a new FileService. A non-positive maxUploadMB falls back to
// DefaultMaxUploadMB.
func NewFileService(
	files FileStore,
	guard *ExperimentGuard,
	storage filestorage.FileStorage,
	audit *AuditService,
	maxUploadMB int,
	logger zerolog.Logger,
) *FileService {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	return &FileService{
		files:       files,
		guard:       guard,
		storage:     storage,
		audit:       audit,
		maxUploadMB: maxUploadMB,
		logger:      logger.With().Str("component", "files").Logger(),
	}
}

// MaxUploadBytes is the largest accepted attachment
func (s *FileService) MaxUploadBytes() int64 {
	return int64(s.maxUploadMB) << 20
}

// Upload stores a file on disk and records it against the experiment. The file is
// only received once the caller may write to the experiment.
func (s *FileService) Upload(ctx context.Context, actor Actor, experimentID int64, in UploadSource) (*models.ExperimentFile, error) {
	if _, err := s.guard.Writable(ctx, actor, experimentID); err != nil {
		return nil, err
	}
	up, err := receive(in)
	if err != nil {
		return nil, err
	}
	if up == nil || up.Open == nil {
		return nil, apperrors.NewValidationError("file", "No file uploaded")
	}
	if up.Size > s.MaxUploadBytes() {
		return nil, FileTooLargeError(s.MaxUploadBytes())
	}

	src, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening upload: %w", err)
	}
	defer src.Close()

	stored, err := s.storage.SaveExperimentFile(experimentID, up.Filename, src)
	if err != nil {
		return nil, err
	}

	uploader := actor.ID
	file := &models.ExperimentFile{
		ExperimentID: experimentID,
		OriginalName: up.Filename,
		StoredName:   stored.StoredName,
		MimeType:     up.MimeType,
		Size:         stored.Size,
		Path:         stored.PublicPath,
		UploadedBy:   &uploader,
	}
	if _, err := s.files.Create(ctx, file); err != nil {
		if delErr := s.storage.DeleteFile(stored.PublicPath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", stored.PublicPath).Msg("Failed to clean up orphaned upload")
		}
		return nil, err
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.file.upload",
		ResourceType: "experiment",
		ResourceID:   experimentID,
		Details: map[string]interface{}{
			"file_id":       file.ID,
			"original_name": file.OriginalName,
			"size":          file.Size,
		},
	})
	return file, nil
}

// List returns the experiment's files, newest first
func (s *FileService) List(ctx context.Context, actor Actor, experimentID int64) ([]*models.ExperimentFile, error) {
	if _, err := s.guard.Access(ctx, actor, experimentID); err != nil {
		return nil, err
	}
	return s.files.ListByExperiment(ctx, experimentID)
}

// Delete removes one file row and its bytes on disk
func (s *FileService) Delete(ctx context.Context, actor Actor, experimentID, fileID int64) error {
	if _, err := s.guard.Writable(ctx, actor, experimentID); err != nil {
		return err
	}

	file, err := s.files.GetInExperiment(ctx, fileID, experimentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.NewResourceNotFoundError("File not found")
		}
		return err
	}

	if err := s.storage.DeleteFile(file.Path); err != nil {
		s.logger.Warn().Err(err).Str("path", file.Path).Msg("Failed to remove file from disk")
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.NewResourceNotFoundError("File not found")
		}
		return err
	}

	s.audit.Record(&actor, AuditEvent{
		Event:        "experiment.file.delete",
		ResourceType: "experiment",
		ResourceID:   experimentID,
		Severity:     models.SeverityWarning,
		Details:      map[string]interface{}{"file_id": fileID, "original_name": file.OriginalName},
	})
	return nil
}

// ListForAssignee returns every file attached to experiments assigned to the caller
func (s *FileService) ListForAssignee(ctx context.Context, actor Actor) ([]*models.ExperimentFile, error) {
	return s.files.ListForAssignee(ctx, actor.ID)
}

// ListApproved returns the files of approved experiments. Admins only.
func (s *FileService) ListApproved(ctx context.Context, actor Actor) ([]*models.ExperimentFile, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbiddenError("Forbidden")
	}
	return s.files.ListApproved(ctx)
}
