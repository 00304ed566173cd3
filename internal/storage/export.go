package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/crosstrack/internal/dynamo"
)

// ExportData is a run in one JSON document.
type ExportData struct {
	Metadata  RunMetadata       `json:"metadata"`
	Snapshots []dynamo.Snapshot `json:"snapshots"`
}

// ExportJSON writes a stored run, metadata and trace, as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Metadata: *meta, Snapshots: snaps})
}

// ExportCSV copies a run's trace to w unchanged.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	path, err := s.TracePath(runID)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
