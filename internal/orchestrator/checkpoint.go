// Backfill checkpoint persistence, grounded on
// original_source/scripts/backfill_gcs.py: iterate start..end one day at
// a time, persist progress after each successful date so --resume can
// pick up where a crashed or killed backfill left off.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Checkpoint is the persisted backfill progress marker.
type Checkpoint struct {
	LastSuccessfulDate string    `json:"last_successful_date"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LoadCheckpoint reads the checkpoint at path. A missing file is not an
// error — it means no backfill has run yet.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("orchestrator: read checkpoint %s: %w", path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("orchestrator: parse checkpoint %s: %w", path, err)
	}
	return &cp, nil
}

// SaveCheckpoint writes cp to path via temp+rename, the same
// never-half-written idiom tokencache.Cache.Put uses.
func SaveCheckpoint(path string, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("orchestrator: marshal checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("orchestrator: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// BackfillDates expands [start, end] into individual UTC calendar days,
// inclusive, resuming after resumeFrom when it falls inside the range.
func BackfillDates(start, end time.Time, resumeFrom string) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if resumeFrom != "" && d.Format("2006-01-02") <= resumeFrom {
			continue
		}
		out = append(out, d)
	}
	return out
}
