package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// UploadStore owns the scratch directory classification requests write
// their image into. Files are keyed by request ID and are removed before
// the response leaves the handler; anything still on disk at startup is a
// leftover from a crash and gets swept.
type UploadStore struct {
	dir    string
	logger *utils.Logger
}

// NewUploadStore creates the upload directory if needed and sweeps stale
// files left over from a previous run.
func NewUploadStore(cfg *config.UploadConfig, logger *utils.Logger) (*UploadStore, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "uploads.new", "upload directory is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "uploads.new", "failed to create upload directory", err)
	}

	store := &UploadStore{dir: cfg.Dir, logger: logger}
	if swept := store.sweep(); swept > 0 {
		logger.WarnTag("STORAGE", "swept %d leftover upload(s) from %s", swept, cfg.Dir)
	}
	return store, nil
}

// Dir returns the directory uploads are staged in.
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save writes the image payload under the request ID and returns the path.
// The caller must Remove the file on every exit path.
func (s *UploadStore) Save(requestID, format string, payload []byte) (string, error) {
	if requestID == "" {
		return "", platformerrors.New(platformerrors.KindStorage, "uploads.save", "request ID is required")
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s.%s", requestID, format))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", platformerrors.Wrap(platformerrors.KindStorage, "uploads.save", "failed to write upload", err)
	}

	s.logger.DebugTag("STORAGE", "staged upload %s (%d bytes)", path, len(payload))
	return path, nil
}

// Remove deletes a staged file. A file that is already gone is not an
// error.
func (s *UploadStore) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.WarnTag("STORAGE", "failed to remove staged upload %s: %v", path, err)
		return
	}
	s.logger.DebugTag("STORAGE", "removed staged upload %s", path)
}

// SizeMB reports the total size of the upload directory in megabytes.
func (s *UploadStore) SizeMB() float64 {
	var total int64
	filepath.Walk(s.dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return float64(total) / (1024 * 1024)
}

func (s *UploadStore) sweep() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	swept := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			swept++
		}
	}
	return swept
}
