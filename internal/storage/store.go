// Package storage keeps finished runs on disk, one directory per run holding
// metadata.json and trace.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/crosstrack/internal/config"
	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/target"
	"github.com/san-kum/crosstrack/internal/vmath"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

var (
	ErrRunNotFound = errors.New("storage: run not found")
	ErrInvalidID   = errors.New("storage: invalid run id")
)

var traceHeader = []string{
	"tick", "time", "dt",
	"target_x", "target_y",
	"x", "y", "vx", "vy",
	"error_x", "error_y",
	"output_x", "output_y",
	"scale",
	"r_top", "r_right", "r_bottom", "r_left",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunMetadata describes a stored run. Gains are a record of the run only.
type RunMetadata struct {
	ID        string             `json:"id"`
	Preset    string             `json:"preset"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Noise     bool               `json:"noise"`
	Scale     bool               `json:"scale"`
	Offset    float64            `json:"offset"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	GainsX    control.Gains      `json:"gains_x"`
	GainsY    control.Gains      `json:"gains_y"`
	Target    target.Spec        `json:"target"`
	Final     vmath.Vec2         `json:"final_position"`
	Metrics   map[string]float64 `json:"metrics"`
	Errors    []string           `json:"errors,omitempty"`
}

// NewRunID returns "<preset>_<first 8 hex digits of a random uuid>".
func NewRunID(preset string) string {
	if preset == "" {
		preset = "custom"
	}
	return fmt.Sprintf("%s_%s", preset, uuid.NewString()[:8])
}

func (s *Store) Save(preset string, cfg *config.Config, result *dynamo.Result) (string, error) {
	runID := NewRunID(preset)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Preset:    preset,
		Timestamp: time.Now(),
		Seed:      cfg.Noise.Seed,
		Noise:     cfg.Noise.Enabled,
		Scale:     cfg.Scale.Enabled,
		Offset:    cfg.Array.Offset,
		Dt:        cfg.Run.Dt,
		Duration:  cfg.Run.Duration,
		Steps:     result.StepsTaken,
		GainsX:    cfg.Controller.X,
		GainsY:    cfg.Controller.Y,
		Target:    cfg.Target,
		Final:     result.Final.Position,
		Metrics:   make(map[string]float64, len(result.Metrics)),
	}
	for name, v := range result.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			meta.Errors = append(meta.Errors, fmt.Sprintf("metric %s is not finite", name))
			continue
		}
		meta.Metrics[name] = v
	}
	for _, e := range result.Errors {
		meta.Errors = append(meta.Errors, e.Error())
	}
	sort.Strings(meta.Errors)

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, traceFile), result.Snapshots); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrace(path string, snaps []dynamo.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(traceHeader); err != nil {
		return err
	}
	for _, s := range snaps {
		if err := w.Write(traceRow(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func traceRow(s dynamo.Snapshot) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	row := []string{
		strconv.Itoa(s.Tick), f(s.Time), f(s.Dt),
		f(s.Target.X), f(s.Target.Y),
		f(s.Position.X), f(s.Position.Y), f(s.Velocity.X), f(s.Velocity.Y),
		f(s.ErrorX), f(s.ErrorY),
		f(s.OutputX), f(s.OutputY),
		f(s.Scale),
	}
	for _, r := range s.Readings {
		row = append(row, f(r))
	}
	return row
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrace reads the stored trace back into snapshots. Controller
// internals are not stored and stay zero.
func (s *Store) LoadTrace(runID string) ([]dynamo.Snapshot, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(traceHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read trace %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []dynamo.Snapshot{}, nil
	}

	snaps := make([]dynamo.Snapshot, 0, len(records)-1)
	for i, record := range records[1:] {
		snap, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("storage: trace %s row %d: %w", runID, i+1, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func parseRow(record []string) (dynamo.Snapshot, error) {
	tick, err := strconv.Atoi(record[0])
	if err != nil {
		return dynamo.Snapshot{}, err
	}
	vals := make([]float64, len(record)-1)
	for i, field := range record[1:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return dynamo.Snapshot{}, fmt.Errorf("column %s: %w", traceHeader[i+1], err)
		}
		vals[i] = v
	}

	snap := dynamo.Snapshot{
		Tick:     tick,
		Time:     vals[0],
		Dt:       vals[1],
		Target:   vmath.V2(vals[2], vals[3]),
		Position: vmath.V2(vals[4], vals[5]),
		Velocity: vmath.V2(vals[6], vals[7]),
		ErrorX:   vals[8],
		ErrorY:   vals[9],
		OutputX:  vals[10],
		OutputY:  vals[11],
		Scale:    vals[12],
	}
	copy(snap.Readings[:], vals[13:])
	return snap, nil
}

// TracePath is where a run's CSV trace lives.
func (s *Store) TracePath(runID string) (string, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, traceFile), nil
}
