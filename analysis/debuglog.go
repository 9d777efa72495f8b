package analysis

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/review-sentiment/analysis/fileutils"
)

// BatchDump is the per-batch debug record written when a debug directory is configured.
type BatchDump struct {
	RunID         string   `json:"run_id,omitempty"`
	Batch         int      `json:"batch"`
	ReviewStart   int      `json:"review_start"`
	ReviewEnd     int      `json:"review_end"`
	FirstReviewID int      `json:"first_review_id"`
	LastReviewID  int      `json:"last_review_id"`
	Query         string   `json:"query"`
	Response      string   `json:"response,omitempty"`
	Error         string   `json:"error,omitempty"`
	NewEntities   []string `json:"new_entities,omitempty"`
	WrittenAt     string   `json:"written_at"`
}

// BatchDumpPath is the file a batch's dump is written to.
func BatchDumpPath(dir string, batch int) string {
	return filepath.Join(dir, fmt.Sprintf("batch_%04d.json", batch))
}

// WriteBatchDump writes d to dir, replacing any earlier dump of the same batch (e.g. from a failed attempt).
func WriteBatchDump(dir string, d BatchDump) error {
	if dir == "" {
		return errors.New("WriteBatchDump: dir is empty")
	}
	if d.WrittenAt == "" {
		d.WrittenAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := fileutils.WriteJSONFileAtomic(BatchDumpPath(dir, d.Batch), d, true); err != nil {
		return fmt.Errorf("WriteBatchDump: %w", err)
	}
	return nil
}
