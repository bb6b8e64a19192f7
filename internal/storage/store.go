package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/linksim/internal/dynamo"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// StateColumns names the components of a stored oscillator state.
var StateColumns = []string{"theta", "theta_dot", "mu", "mu_dot"}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	Integrator  string             `json:"integrator"`
	Adaptive    bool               `json:"adaptive"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Samples     int                `json:"samples"`
	RelTol      float64            `json:"rtol"`
	AbsTol      float64            `json:"atol"`
	Params      map[string]float64 `json:"params"`
	Initial     []float64          `json:"initial"`
	Metrics     map[string]float64 `json:"metrics"`
	EnergyDrift float64            `json:"energy_drift"`
	StepsTaken  int                `json:"steps_taken"`
	Rejected    int                `json:"rejected"`
	Evaluations int                `json:"evaluations"`
}

// RunSpec describes how a result was produced.
type RunSpec struct {
	Model      string
	Integrator string
	Config     dynamo.Config
	Params     map[string]float64
	Initial    dynamo.State
}

// Save writes result under a new run directory and returns its id. When
// energy is non-nil its value per sample is stored as an extra column.
func (s *Store) Save(spec RunSpec, result *dynamo.Result, energy []float64) (string, error) {
	now := s.now()
	runID := fmt.Sprintf("%s_%d", spec.Model, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       spec.Model,
		Timestamp:   now,
		Integrator:  spec.Integrator,
		Adaptive:    spec.Config.Adaptive,
		Dt:          spec.Config.Dt,
		Duration:    spec.Config.Duration,
		Samples:     len(result.States),
		RelTol:      spec.Config.Tolerance,
		AbsTol:      spec.Config.AbsTolerance,
		Params:      spec.Params,
		Initial:     spec.Initial,
		Metrics:     result.Metrics,
		EnergyDrift: result.EnergyDrift,
		StepsTaken:  result.StepsTaken,
		Rejected:    result.Rejected,
		Evaluations: result.Evaluations,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteCSV(f, result, energy); err != nil {
		return "", err
	}
	return runID, f.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns the metadata of every stored run, oldest first.
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
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[len(runs)-1].ID, nil
}

// LoadResult reads the stored trajectory back. Columns beyond the state
// (the energy column) are dropped.
func (s *Store) LoadResult(runID string) (*RunMetadata, *dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	result := &dynamo.Result{
		Metrics:     meta.Metrics,
		EnergyDrift: meta.EnergyDrift,
		StepsTaken:  meta.StepsTaken,
		Rejected:    meta.Rejected,
		Evaluations: meta.Evaluations,
	}
	if len(records) < 2 {
		return meta, result, nil
	}

	dim := len(StateColumns)
	for i, record := range records[1:] {
		if len(record) < dim+1 {
			return nil, nil, fmt.Errorf("run %s: row %d has %d columns", runID, i+1, len(record))
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
		}

		state := make(dynamo.State, dim)
		for j := range state {
			if state[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
			}
		}

		result.Times = append(result.Times, t)
		result.States = append(result.States, state)
	}

	return meta, result, nil
}
