package poller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/stages"
)

const (
	lastJobFile    = "last_job.json"
	lastResultFile = "last_result.json"
)

// LastJob records the most recently started analysis so follow-up commands
// can omit the job id.
type LastJob struct {
	JobID     string    `json:"job_id"`
	Contract  string    `json:"contract"`
	Server    string    `json:"server"`
	StartedAt time.Time `json:"started_at"`
}

// SaveLastJob writes the last-job marker to the state directory.
func SaveLastJob(dir *home.Dir, last LastJob) error {
	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode last job: %w", err)
	}
	path := filepath.Join(dir.StatePath(), lastJobFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write last job: %w", err)
	}
	return nil
}

// LoadLastJob reads the last-job marker. A missing file returns an error the
// caller can treat as "no previous job".
func LoadLastJob(dir *home.Dir) (LastJob, error) {
	var last LastJob
	data, err := os.ReadFile(filepath.Join(dir.StatePath(), lastJobFile))
	if err != nil {
		return last, fmt.Errorf("no previous job recorded: %w", err)
	}
	if err := json.Unmarshal(data, &last); err != nil {
		return last, fmt.Errorf("failed to decode last job: %w", err)
	}
	return last, nil
}

// SaveLastResult writes the finished bundle next to the last-job marker.
func SaveLastResult(dir *home.Dir, bundle *stages.Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	path := filepath.Join(dir.StatePath(), lastResultFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// LoadLastResult reads the most recently saved bundle.
func LoadLastResult(dir *home.Dir) (*stages.Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir.StatePath(), lastResultFile))
	if err != nil {
		return nil, fmt.Errorf("no previous result recorded: %w", err)
	}
	var bundle stages.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &bundle, nil
}

// ClearState removes the last-job marker and result.
func ClearState(dir *home.Dir) {
	os.Remove(filepath.Join(dir.StatePath(), lastJobFile))
	os.Remove(filepath.Join(dir.StatePath(), lastResultFile))
}
