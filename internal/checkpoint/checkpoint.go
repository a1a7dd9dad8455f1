// Package checkpoint persists scan progress as a JSON document with atomic
// replacement, so an interrupted scan resumes instead of restarting.
package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// FileStore keeps the checkpoint document at a fixed path.
type FileStore struct {
	path string
}

var _ contract.CheckpointStore = (*FileStore)(nil)

// NewFileStore builds a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the saved checkpoint. A missing file means no checkpoint and
// returns nil without error. A present but unreadable document is an error:
// silently restarting would reprocess pages the scan already paid for.
// Unknown fields are ignored so older scanners can resume newer documents.
func (s *FileStore) Load() (*schema.ScanCheckpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &contract.CheckpointIOError{Op: "load", Path: s.path, Err: err}
	}

	var cp schema.ScanCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &contract.CheckpointIOError{Op: "load", Path: s.path, Err: err}
	}
	return &cp, nil
}

// Save atomically replaces the checkpoint. The document is written to a
// temporary file in the target directory and renamed into place, so a
// concurrent reader observes either the previous document or the new one,
// never a truncated mix.
func (s *FileStore) Save(cp *schema.ScanCheckpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &contract.CheckpointIOError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

// Clear removes the checkpoint file. Clearing an absent checkpoint is fine;
// it happens whenever a scan finishes without ever needing to resume.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &contract.CheckpointIOError{Op: "clear", Path: s.path, Err: err}
	}
	return nil
}
