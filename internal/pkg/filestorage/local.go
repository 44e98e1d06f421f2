package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
)

const (
	// PublicPrefix is the URL path the storage root is served under
	PublicPrefix = "/uploads"

	experimentsDir = "experiments"
	avatarsDir     = "avatars"
)

// ErrInvalidPath is returned for public paths that do not resolve inside the storage root
var ErrInvalidPath = errors.New("invalid file path")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SafeName replaces every character outside [a-zA-Z0-9.-_] with an underscore.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory, served at PublicPrefix
	now      func() time.Time
}

// NewLocalStorage creates a new LocalStorage instance rooted at basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, experimentsDir), filepath.Join(basePath, avatarsDir)} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			logger.Error().Err(err).Str("path", dir).Msg("Failed to create storage directory")
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// BasePath returns the filesystem root of the storage
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveExperimentFile stores an experiment attachment
func (ls *LocalStorage) SaveExperimentFile(experimentID int64, originalName string, content io.Reader) (*StoredFile, error) {
	sub := path.Join(experimentsDir, strconv.FormatInt(experimentID, 10))
	storedName := strconv.FormatInt(ls.now().UnixMilli(), 10) + "_" + SafeName(originalName)
	return ls.write(sub, storedName, content)
}

// SaveAvatar stores a profile image with a random name keeping the extension
func (ls *LocalStorage) SaveAvatar(originalName string, content io.Reader) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(SafeName(originalName)))
	return ls.write(avatarsDir, uuid.New().String()+ext, content)
}

func (ls *LocalStorage) write(sub, storedName string, content io.Reader) (*StoredFile, error) {
	dir := filepath.Join(ls.basePath, filepath.FromSlash(sub))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	dstPath := filepath.Join(dir, storedName)
	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	size, err := io.Copy(dst, content)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	publicPath := path.Join(PublicPrefix, sub, storedName)
	logger.Debug().Str("stored_as", storedName).Str("public_path", publicPath).Int64("size", size).Msg("File saved")
	return &StoredFile{StoredName: storedName, PublicPath: publicPath, Size: size}, nil
}

// DeleteFile removes a file given the public path stored in the database.
// Returns nil if the file doesn't exist.
func (ls *LocalStorage) DeleteFile(publicPath string) error {
	if publicPath == "" {
		return nil
	}

	physicalPath, err := ls.resolve(publicPath)
	if err != nil {
		return err
	}

	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// RemoveExperimentDir deletes experiments/<id> and everything below it
func (ls *LocalStorage) RemoveExperimentDir(experimentID int64) error {
	dir := filepath.Join(ls.basePath, experimentsDir, strconv.FormatInt(experimentID, 10))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove experiment directory: %w", err)
	}
	return nil
}

// resolve maps /uploads/<rel> to a path under basePath and refuses anything escaping it.
func (ls *LocalStorage) resolve(publicPath string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+publicPath), PublicPrefix+"/")
	if rel == "" || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, publicPath)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(rel)), nil
}
