package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockroom/internal/domain"

	"go.uber.org/zap"
)

// PersistenceError wraps a file-system failure at the store boundary so
// callers can tell it apart from validation and lookup failures
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s of %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorruptDataError reports a backing file whose content could not be parsed.
// The caller decides whether to back it up and reset, or to abort.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("inventory file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

const backupTimestampLayout = "20060102_150405"

// FileStore persists a product list to a JSON file. Saves run as an explicit
// pipeline: timestamped backup of the current file, write to a temp file in
// the same directory, then an atomic rename over the backing file.
type FileStore struct {
	path      string
	backupDir string
	logger    *zap.Logger
}

// NewFileStore creates a FileStore bound to the given backing file path
func NewFileStore(path, backupDir string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:      path,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the backing file. An absent or empty file yields an empty list,
// not an error. Unparseable content yields a CorruptDataError.
func (s *FileStore) Load() ([]domain.Product, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, &CorruptDataError{Path: s.path, Err: err}
	}

	return products, nil
}

// Save writes the full product list to the backing file. The previous file
// content is backed up first, best-effort: a backup failure is logged but
// never blocks the save.
func (s *FileStore) Save(products []domain.Product) error {
	if backupPath, err := s.backup("backup"); err != nil {
		s.logger.Warn("Could not back up inventory file before save",
			zap.String("path", s.path),
			zap.Error(err),
		)
	} else if backupPath != "" {
		s.logger.Debug("Inventory file backed up", zap.String("backup", backupPath))
	}

	if products == nil {
		products = []domain.Product{}
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	return nil
}

// BackupCorrupt copies the current backing file aside before a reset. Unlike
// the pre-save backup, a failure here is an error: resetting without a copy
// of the corrupt file would silently discard data.
func (s *FileStore) BackupCorrupt() (string, error) {
	backupPath, err := s.backup("corrupt")
	if err != nil {
		return "", &PersistenceError{Op: "backup", Path: s.path, Err: err}
	}
	return backupPath, nil
}

// backup copies the backing file into the backup directory under a
// timestamped name. Returns "" when there is no file to back up.
func (s *FileStore) backup(label string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	timestamp := time.Now().Format(backupTimestampLayout)
	backupPath := filepath.Join(s.backupDir, fmt.Sprintf("%s_%s_%s.json", base, label, timestamp))

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", err
	}

	return backupPath, nil
}
