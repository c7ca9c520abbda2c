// Package coverage validates a work unit's linked specification files
// against test-to-scenario coverage records.
package coverage

import (
	"encoding/json"
	"fmt"
	"os"
)

// StepKind is one of the three step annotations a covering test must carry
// for a scenario.
type StepKind string

const (
	StepPrecondition StepKind = "precondition"
	StepAction       StepKind = "action"
	StepOutcome      StepKind = "outcome"
)

// AllStepKinds lists the annotations required for full coverage, in
// reporting order.
var AllStepKinds = []StepKind{StepPrecondition, StepAction, StepOutcome}

// StepMapping ties one step annotation to a line in the test file.
type StepMapping struct {
	Kind StepKind `json:"kind"`
	Line int      `json:"line,omitempty"`
}

// TestFileMapping records one test file covering a scenario.
type TestFileMapping struct {
	TestFile string        `json:"testFile"`
	Steps    []StepMapping `json:"steps,omitempty"`
}

// HasStep reports whether the mapping carries the given annotation.
func (m TestFileMapping) HasStep(kind StepKind) bool {
	for _, s := range m.Steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// MissingSteps returns the annotations the mapping lacks.
func (m TestFileMapping) MissingSteps() []StepKind {
	var missing []StepKind
	for _, kind := range AllStepKinds {
		if !m.HasStep(kind) {
			missing = append(missing, kind)
		}
	}
	return missing
}

// ScenarioCoverage is the coverage state of one scenario.
type ScenarioCoverage struct {
	Name             string            `json:"name"`
	TestFileMappings []TestFileMapping `json:"testFileMappings"`
}

// Record is the sidecar artifact for one specification file. It is
// read-only to this package.
type Record struct {
	Scenarios []ScenarioCoverage `json:"scenarios"`
}

// Scenario returns the coverage entry for a scenario name, if present.
func (r *Record) Scenario(name string) (*ScenarioCoverage, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].Name == name {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}

// Reader resolves the coverage sidecar for a specification file path.
type Reader interface {
	ReadCoverage(featurePath string) (*Record, error)
}

// DefaultSidecarSuffix is appended to a feature path to locate its sidecar.
const DefaultSidecarSuffix = ".coverage.json"

// FileReader reads sidecars from disk next to their feature files.
type FileReader struct {
	// Suffix overrides DefaultSidecarSuffix when non-empty.
	Suffix string
}

// ReadCoverage loads <featurePath><suffix>. A missing sidecar is not an
// error: it reads as a record with zero scenarios.
func (r FileReader) ReadCoverage(featurePath string) (*Record, error) {
	suffix := r.Suffix
	if suffix == "" {
		suffix = DefaultSidecarSuffix
	}
	data, err := os.ReadFile(featurePath + suffix)
	if err != nil {
		if os.IsNotExist(err) {
			return &Record{}, nil
		}
		return nil, fmt.Errorf("read coverage sidecar for %s: %w", featurePath, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse coverage sidecar for %s: %w", featurePath, err)
	}
	return &rec, nil
}
