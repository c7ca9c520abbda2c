package coverage

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspec-dev/fspec/internal/feature"
	"github.com/fspec-dev/fspec/internal/workunit"
)

type stubSpecs struct {
	files []*feature.File
}

func (s stubSpecs) LoadFeatures(dir string) ([]*feature.File, error) { return s.files, nil }

func (s stubSpecs) LoadFeature(path string) (*feature.File, error) {
	for _, f := range s.files {
		if f.Path == path {
			return f, nil
		}
	}
	return nil, fmt.Errorf("feature %s: %w", path, os.ErrNotExist)
}

type stubCoverage map[string]*Record

func (s stubCoverage) ReadCoverage(path string) (*Record, error) {
	if rec, ok := s[path]; ok {
		return rec, nil
	}
	return &Record{}, nil
}

func complete(testFile string) TestFileMapping {
	return TestFileMapping{
		TestFile: testFile,
		Steps: []StepMapping{
			{Kind: StepPrecondition},
			{Kind: StepAction},
			{Kind: StepOutcome},
		},
	}
}

func unit(id string) *workunit.WorkUnit {
	return &workunit.WorkUnit{ID: id, Title: "t", Type: workunit.TypeStory, Status: workunit.StatusSpecifying}
}

func TestDiscoveryPrecedence(t *testing.T) {
	linked := &feature.File{Path: "linked.feature", Scenarios: []feature.Scenario{{Name: "L"}}}
	tagged := &feature.File{Path: "tagged.feature", Scenarios: []feature.Scenario{{Name: "T", Tags: []string{"X-1"}}}}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{linked, tagged}}, Coverage: stubCoverage{}}

	// Explicit list wins over tag discovery.
	u := unit("X-1")
	u.LinkedFeatures = []string{"linked.feature"}
	files, err := v.LinkedFiles(u)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "linked.feature", files[0].Path)

	// Empty list falls back to tag discovery.
	u.LinkedFeatures = nil
	files, err = v.LinkedFiles(u)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "tagged.feature", files[0].Path)
}

func TestTestingGateFeatureLevelTag(t *testing.T) {
	// A feature-level tag counts for every scenario in the file.
	f := &feature.File{
		Path:      "auth.feature",
		Tags:      []string{"X-1"},
		Scenarios: []feature.Scenario{{Name: "any"}},
	}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{f}}, Coverage: stubCoverage{}}
	assert.NoError(t, v.CheckTestingGate(unit("X-1")))
}

func TestImplementingGatePassesWithExactlyOneTestFile(t *testing.T) {
	f := &feature.File{Path: "a.feature", Scenarios: []feature.Scenario{
		{Name: "s1", Tags: []string{"X-1"}},
		{Name: "s2", Tags: []string{"X-1"}},
	}}
	cov := stubCoverage{"a.feature": {Scenarios: []ScenarioCoverage{
		{Name: "s1", TestFileMappings: []TestFileMapping{complete("tests/a_test.go")}},
		{Name: "s2", TestFileMappings: []TestFileMapping{complete("tests/a_test.go")}},
	}}}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{f}}, Coverage: cov}
	assert.NoError(t, v.CheckImplementingGate(unit("X-1")))
}

func TestImplementingGateNeverPools(t *testing.T) {
	// good.feature maps 1:1; bad.feature has zero test files. Only
	// bad.feature is named: a passing file passes regardless of siblings.
	good := &feature.File{Path: "good.feature", Scenarios: []feature.Scenario{{Name: "g", Tags: []string{"X-1"}}}}
	bad := &feature.File{Path: "bad.feature", Scenarios: []feature.Scenario{{Name: "b", Tags: []string{"X-1"}}}}
	cov := stubCoverage{"good.feature": {Scenarios: []ScenarioCoverage{
		{Name: "g", TestFileMappings: []TestFileMapping{complete("tests/g_test.go")}},
	}}}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{bad, good}}, Coverage: cov}

	err := v.CheckImplementingGate(unit("X-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No test files cover bad.feature")
	assert.NotContains(t, err.Error(), "good.feature")
}

func TestPureParentSkipsGates(t *testing.T) {
	v := &Validator{Specs: stubSpecs{}, Coverage: stubCoverage{}}
	u := unit("X-1")
	u.Children = []string{"X-2"}

	assert.NoError(t, v.CheckTestingGate(u))
	assert.NoError(t, v.CheckImplementingGate(u))
	assert.NoError(t, v.CheckDoneGate(u))
}

func TestDoneGateNamesMissingStepKind(t *testing.T) {
	f := &feature.File{Path: "a.feature", Scenarios: []feature.Scenario{{Name: "s", Tags: []string{"X-1"}}}}
	cov := stubCoverage{"a.feature": {Scenarios: []ScenarioCoverage{{
		Name: "s",
		TestFileMappings: []TestFileMapping{{
			TestFile: "tests/a_test.go",
			Steps:    []StepMapping{{Kind: StepAction}},
		}},
	}}}}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{f}}, Coverage: cov}

	err := v.CheckDoneGate(unit("X-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precondition, outcome")
	assert.Contains(t, err.Error(), "tests/a_test.go")
}

func TestDoneGatePicksClosestMapping(t *testing.T) {
	// Two mappings, one complete: the scenario is covered.
	f := &feature.File{Path: "a.feature", Scenarios: []feature.Scenario{{Name: "s", Tags: []string{"X-1"}}}}
	cov := stubCoverage{"a.feature": {Scenarios: []ScenarioCoverage{{
		Name: "s",
		TestFileMappings: []TestFileMapping{
			{TestFile: "tests/partial_test.go", Steps: []StepMapping{{Kind: StepAction}}},
			complete("tests/full_test.go"),
		},
	}}}}
	v := &Validator{Specs: stubSpecs{files: []*feature.File{f}}, Coverage: cov}
	assert.NoError(t, v.CheckDoneGate(unit("X-1")))
}

func TestFileReaderMissingSidecar(t *testing.T) {
	rec, err := FileReader{}.ReadCoverage(t.TempDir() + "/nope.feature")
	require.NoError(t, err)
	assert.Empty(t, rec.Scenarios)
}

func TestFileReaderParsesSidecar(t *testing.T) {
	dir := t.TempDir()
	featurePath := dir + "/auth.feature"
	sidecar := `{"scenarios":[{"name":"Valid login","testFileMappings":[{"testFile":"tests/auth_test.go","steps":[{"kind":"precondition","line":3},{"kind":"action","line":7},{"kind":"outcome","line":12}]}]}]}`
	require.NoError(t, os.WriteFile(featurePath+".coverage.json", []byte(sidecar), 0644))

	rec, err := FileReader{}.ReadCoverage(featurePath)
	require.NoError(t, err)
	require.Len(t, rec.Scenarios, 1)
	sc, ok := rec.Scenario("Valid login")
	require.True(t, ok)
	require.Len(t, sc.TestFileMappings, 1)
	assert.Empty(t, sc.TestFileMappings[0].MissingSteps())
}
