package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/medscrape/medscrape/models"
)

// Snapshotter writes numbered progress checkpoints of the accumulated result
// sequence during a batch run. Snapshots are never read back; a restarted run
// always starts from the full input list.
type Snapshotter struct {
	dir string
}

// NewSnapshotter builds a snapshotter writing into dir.
func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{dir: dir}
}

// Write persists the full accumulated sequence as progress_backup_<n>.csv and
// progress_backup_<n>.json, where n is the number of completed records.
func (s *Snapshotter) Write(records []*models.PageRecord, completed int) error {
	base := filepath.Join(s.dir, fmt.Sprintf("progress_backup_%d", completed))

	csvWriter, err := NewCSVWriter(base + ".csv")
	if err != nil {
		return fmt.Errorf("snapshot csv: %w", err)
	}
	if err := csvWriter.Write(records); err != nil {
		csvWriter.Close()
		return fmt.Errorf("snapshot csv: %w", err)
	}
	if err := csvWriter.Close(); err != nil {
		return fmt.Errorf("snapshot csv: %w", err)
	}

	jsonWriter, err := NewJSONWriter(base + ".json")
	if err != nil {
		return fmt.Errorf("snapshot json: %w", err)
	}
	if err := jsonWriter.Write(records); err != nil {
		jsonWriter.Close()
		return fmt.Errorf("snapshot json: %w", err)
	}
	if err := jsonWriter.Close(); err != nil {
		return fmt.Errorf("snapshot json: %w", err)
	}

	return nil
}
