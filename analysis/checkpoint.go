package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

const (
	DefaultCheckpointFile = "checkpoint.json"
	DefaultReportFile     = "report.json"
)

// Checkpoint is the persisted cursor. Unset fields are written as null.
type Checkpoint struct {
	BatchSize        *int     `json:"batch_size"`
	LastBatchIdx     *int     `json:"last_batch_idx"`
	ExistingEntities []string `json:"existing_entities"`
}

// CheckpointManager persists a Store as two files: the report and the checkpoint.
// Both are replaced via write-temp-then-rename; the report is written first so that a crash between
// the two writes leaves a cursor that merely replays an already merged batch (merges are idempotent).
type CheckpointManager struct {
	CheckpointPath string
	ReportPath     string
}

// NewCheckpointManager places checkpoint.json and report.json in dir.
func NewCheckpointManager(dir string) *CheckpointManager {
	return &CheckpointManager{
		CheckpointPath: filepath.Join(dir, DefaultCheckpointFile),
		ReportPath:     filepath.Join(dir, DefaultReportFile),
	}
}

// Load restores the Store in one step. Missing files mean a fresh start.
func (m *CheckpointManager) Load() (*Store, error) {
	if m == nil || m.CheckpointPath == "" || m.ReportPath == "" {
		return nil, errors.New("CheckpointManager.Load: paths are empty")
	}
	cp, err := LoadCheckpoint(m.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("CheckpointManager.Load: %w", err)
	}
	report, err := LoadReport(m.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("CheckpointManager.Load: %w", err)
	}
	s, err := RestoreStore(cp, report)
	if err != nil {
		return nil, fmt.Errorf("CheckpointManager.Load: %w", err)
	}
	return s, nil
}

// Save writes the report, then the checkpoint.
func (m *CheckpointManager) Save(s *Store) error {
	if m == nil || m.CheckpointPath == "" || m.ReportPath == "" {
		return errors.New("CheckpointManager.Save: paths are empty")
	}
	if s == nil {
		return errors.New("CheckpointManager.Save: store is nil")
	}
	if err := fileutils.WriteJSONFileAtomic(m.ReportPath, s.Report(), true); err != nil {
		return fmt.Errorf("CheckpointManager.Save: report: %w", err)
	}
	if err := fileutils.WriteJSONFileAtomic(m.CheckpointPath, s.Checkpoint(), true); err != nil {
		return fmt.Errorf("CheckpointManager.Save: checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint file. If the file doesn't exist, it returns an empty checkpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	if path == "" {
		return Checkpoint{}, errors.New("LoadCheckpoint: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Checkpoint{ExistingEntities: []string{}}, nil
		}
		return Checkpoint{}, fmt.Errorf("LoadCheckpoint: read file: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("LoadCheckpoint: unmarshal: %w", err)
	}
	if cp.ExistingEntities == nil {
		cp.ExistingEntities = []string{}
	}
	return cp, nil
}

// LoadReport reads a report file. If the file doesn't exist, it returns an empty report.
// Entries missing either list default to empty.
func LoadReport(path string) (Report, error) {
	if path == "" {
		return nil, errors.New("LoadReport: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, nil
		}
		return nil, fmt.Errorf("LoadReport: read file: %w", err)
	}
	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("LoadReport: unmarshal: %w", err)
	}
	if r == nil {
		r = Report{}
	}
	return r, nil
}
