package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/wricardo/gridsnake/game/service"
)

// FileArchive implements service.ResultArchive with one JSON file per round
type FileArchive struct {
	resultsDir string
}

// NewFileArchive creates a file-based result archive
func NewFileArchive(resultsDir string) (*FileArchive, error) {
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &FileArchive{resultsDir: resultsDir}, nil
}

// Save writes a summary to <round>.json
func (fa *FileArchive) Save(summary *service.Summary) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	if summary.ID == "" || strings.ContainsAny(summary.ID, `/\`) {
		return fmt.Errorf("invalid round id %q", summary.ID)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := os.WriteFile(fa.path(summary.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// Load reads the summary of a round
func (fa *FileArchive) Load(id string) (*service.Summary, error) {
	data, err := os.ReadFile(fa.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, service.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var summary service.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &summary, nil
}

func (fa *FileArchive) Delete(id string) error {
	if !fa.Exists(id) {
		return service.ErrResultNotFound
	}
	if err := os.Remove(fa.path(id)); err != nil {
		return fmt.Errorf("failed to remove result file: %w", err)
	}
	return nil
}

// ListAll returns the ids of every archived round
func (fa *FileArchive) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fa.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

func (fa *FileArchive) Exists(id string) bool {
	_, err := os.Stat(fa.path(id))
	return err == nil
}

// Prune removes results of rounds that ended more than maxAge ago. Files
// that cannot be decoded are judged by their modification time.
func (fa *FileArchive) Prune(maxAge time.Duration) (int, error) {
	ids, err := fa.ListAll()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var result *multierror.Error

	for _, id := range ids {
		ended, err := fa.endedAt(id)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !ended.Before(cutoff) {
			continue
		}
		if err := os.Remove(fa.path(id)); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to remove %s: %w", id, err))
			continue
		}
		removed++
	}

	return removed, result.ErrorOrNil()
}

func (fa *FileArchive) endedAt(id string) (time.Time, error) {
	if summary, err := fa.Load(id); err == nil && !summary.EndedAt.IsZero() {
		return summary.EndedAt, nil
	}
	info, err := os.Stat(fa.path(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", id, err)
	}
	return info.ModTime(), nil
}

func (fa *FileArchive) path(id string) string {
	return filepath.Join(fa.resultsDir, id+".json")
}
