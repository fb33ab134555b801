package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// AttachmentStore releases stored attachment files when their owning ticket
// or message lets go of them. Uploads themselves happen upstream; this side
// only ever deletes.
type AttachmentStore interface {
	Remove(url string) error
}

// LocalStore removes files served from a local public directory, the layout
// the storefront's upload handler writes (/uploads/... under the base dir).
type LocalStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalStore builds a store rooted at baseDir.
func NewLocalStore(baseDir string, logger *zap.Logger) *LocalStore {
	return &LocalStore{baseDir: baseDir, logger: logger}
}

// Remove deletes the file backing an attachment URL. A file already gone is
// not an error. URLs escaping the base dir are refused.
func (s *LocalStore) Remove(url string) error {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(url, "/"))
	if cleaned == "/" || strings.Contains(cleaned, "..") {
		return errors.New("refusing to remove path outside base dir")
	}

	path := filepath.Join(s.baseDir, cleaned)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	s.logger.Debug("removed attachment file", zap.String("path", path))
	return nil
}
