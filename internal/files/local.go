package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SomeAverageDev/konnectors/internal/logging"
)

// LocalStore writes documents below a root directory.
type LocalStore struct {
	root   string
	logger logging.Logger
}

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string, logger logging.Logger) *LocalStore {
	return &LocalStore{root: root, logger: logging.OrDefault(logger)}
}

// Root returns the directory documents are written under.
func (s *LocalStore) Root() string {
	return s.root
}

// Put writes data to root/folder/name unless the file already exists.
func (s *LocalStore) Put(ctx context.Context, folder, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(objectPath(folder, name)))

	if FileExists(target) {
		s.logger.Info("Skipping existing document", logging.F(logging.FieldFile, target))
		return target, nil
	}

	if err := EnsureDirectoryExists(filepath.Dir(target)); err != nil {
		return "", err
	}

	// O_EXCL keeps a concurrent writer from being overwritten.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return target, nil
		}
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	s.logger.Debug("Stored document",
		logging.F(logging.FieldFile, target),
		logging.F(logging.FieldCount, len(data)))
	return target, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// EnsureDirectoryExists creates a directory if it doesn't exist
func EnsureDirectoryExists(dirPath string) error {
	info, err := os.Stat(dirPath)
	if err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(dirPath, 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
