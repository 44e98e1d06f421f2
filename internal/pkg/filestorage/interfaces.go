package filestorage

import (
	"io"
)

// StoredFile describes a file written by a FileStorage
type StoredFile struct {
	StoredName string // name on disk, unique within its directory
	PublicPath string // URL path served under /uploads
	Size       int64  // bytes written
}

// FileStorage defines the file storage operations the experiment and profile services need
type FileStorage interface {
	// SaveExperimentFile stores content under experiments/<id>/<millis>_<safeName>
	SaveExperimentFile(experimentID int64, originalName string, content io.Reader) (*StoredFile, error)

	// SaveAvatar stores an avatar image under avatars/<uuid><ext>
	SaveAvatar(originalName string, content io.Reader) (*StoredFile, error)

	// DeleteFile removes a stored file by its public path; missing files are not an error
	DeleteFile(publicPath string) error

	// RemoveExperimentDir removes every stored file of an experiment
	RemoveExperimentDir(experimentID int64) error
}
