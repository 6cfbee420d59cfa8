package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/uploader"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Config is the run configuration recorded in a report. Credentials are
// never recorded.
type Config struct {
	DatasetID      string `yaml:"dataset_id" json:"dataset_id"`
	PartID         string `yaml:"part_id" json:"part_id"`
	OrgID          string `yaml:"org_id" json:"org_id"`
	LocationID     string `yaml:"location_id" json:"location_id"`
	ImageDirectory string `yaml:"image_directory" json:"image_directory"`
	Concurrency    int    `yaml:"concurrency" json:"concurrency"`
	OnError        string `yaml:"on_error" json:"on_error"`
}

// Entry is one scanned file. It doubles as the parquet row schema.
type Entry struct {
	Path           string `yaml:"path" json:"path" parquet:"path"`
	Status         string `yaml:"status" json:"status" parquet:"status"`
	FileID         string `yaml:"file_id,omitempty" json:"file_id,omitempty" parquet:"file_id"`
	OrganizationID string `yaml:"organization_id,omitempty" json:"organization_id,omitempty" parquet:"organization_id"`
	LocationID     string `yaml:"location_id,omitempty" json:"location_id,omitempty" parquet:"location_id"`
	DatasetID      string `yaml:"dataset_id,omitempty" json:"dataset_id,omitempty" parquet:"dataset_id"`
	Error          string `yaml:"error,omitempty" json:"error,omitempty" parquet:"error"`
}

// Report summarizes one upload run
type Report struct {
	RunID      string    `yaml:"run_id" json:"run_id"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time `yaml:"finished_at" json:"finished_at"`
	Config     Config    `yaml:"config" json:"config"`
	Associated bool      `yaml:"associated" json:"associated"`
	Uploaded   int       `yaml:"uploaded" json:"uploaded"`
	Failed     int       `yaml:"failed" json:"failed"`
	Skipped    int       `yaml:"skipped" json:"skipped"`
	Error      string    `yaml:"error,omitempty" json:"error,omitempty"`
	Entries    []Entry   `yaml:"entries" json:"entries"`
}

// New builds a report from a finished run. runErr is the error the run
// ended with, if any.
func New(runID string, cfg Config, startedAt time.Time, result *uploader.Result, runErr error) *Report {
	r := &Report{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Config:     cfg,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if result == nil {
		return r
	}

	r.Associated = result.Associated
	r.Uploaded = len(result.BinaryIDs)
	r.Failed = len(result.Failures)
	r.Skipped = result.Skipped

	r.Entries = make([]Entry, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		e := Entry{
			Path:   o.Path,
			Status: string(o.Status),
		}
		if o.Status == uploader.StatusUploaded {
			e.FileID = o.BinaryID.FileID
			e.OrganizationID = o.BinaryID.OrganizationID
			e.LocationID = o.BinaryID.LocationID
			if result.Associated {
				e.DatasetID = cfg.DatasetID
			}
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		r.Entries = append(r.Entries, e)
	}

	return r
}

// CheckPath rejects report paths whose extension Write cannot handle
func CheckPath(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json", ".parquet":
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s (supported: .yaml, .json, .parquet)", ext)
	}
}

// Write saves a report, picking the format from the file extension
func Write(path string, r *Report) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = writeYAML(path, r)
	case ".json":
		err = writeJSON(path, r)
	case ".parquet":
		err = writeParquet(path, r)
	}
	if err != nil {
		return err
	}

	slog.Info("Report written", "path", path, "run_id", r.RunID, "entries", len(r.Entries))
	return nil
}

func writeYAML(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML report: %w", err)
	}
	return nil
}

func writeJSON(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}

// writeParquet stores only the entries, one row per file
func writeParquet(path string, r *Report) error {
	if err := parquet.WriteFile(path, r.Entries); err != nil {
		return fmt.Errorf("failed to write parquet report: %w", err)
	}
	return nil
}
