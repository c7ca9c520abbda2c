package coverage

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fspec-dev/fspec/internal/feature"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// Validator reconciles a work unit against its linked specification files
// and their coverage sidecars. It never mutates anything; each gate either
// returns nil or a ValidationError naming the offending file and the
// remediation.
type Validator struct {
	Specs       feature.Reader
	Coverage    Reader
	FeaturesDir string
}

// LinkedFiles resolves the specification files belonging to a unit. An
// explicit linkedFeatures list always wins; tag-based auto-discovery runs
// only when the list is empty.
func (v *Validator) LinkedFiles(u *workunit.WorkUnit) ([]*feature.File, error) {
	if len(u.LinkedFeatures) > 0 {
		files := make([]*feature.File, 0, len(u.LinkedFeatures))
		for _, path := range u.LinkedFeatures {
			if !filepath.IsAbs(path) {
				path = filepath.Join(v.FeaturesDir, path)
			}
			f, err := v.Specs.LoadFeature(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
		return files, nil
	}

	all, err := v.Specs.LoadFeatures(v.FeaturesDir)
	if err != nil {
		return nil, err
	}
	var files []*feature.File
	for _, f := range all {
		if f.HasTag(u.ID) {
			files = append(files, f)
		}
	}
	return files, nil
}

// CheckTestingGate enforces the entry condition for testing: at least one
// scenario across the linked/discovered files tagged with the unit's id.
func (v *Validator) CheckTestingGate(u *workunit.WorkUnit) error {
	files, err := v.LinkedFiles(u)
	if err != nil {
		return err
	}
	if len(files) == 0 && len(u.Children) > 0 {
		return nil // pure parent, no own scenarios
	}
	for _, f := range files {
		if len(f.ScenariosTagged(u.ID)) > 0 {
			return nil
		}
	}
	return workunit.Invalid(
		fmt.Sprintf("No scenarios are tagged @%s in any specification file — ACDD requires scenarios before testing", u.ID),
		fmt.Sprintf("Tag the relevant scenarios with @%s, or generate scenarios from this unit's examples", u.ID))
}

// CheckImplementingGate enforces the per-file 1:1 rule: each linked file
// independently needs exactly one distinct covering test file across its
// scenarios. Files are never pooled; a passing file stays passing no matter
// what its siblings look like.
func (v *Validator) CheckImplementingGate(u *workunit.WorkUnit) error {
	files, err := v.LinkedFiles(u)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if len(u.Children) > 0 {
			return nil // pure parent, no own scenarios
		}
		return workunit.Invalid(
			fmt.Sprintf("No specification files are linked to %s — ACDD requires tests to be mapped before implementing", u.ID),
			fmt.Sprintf("Tag scenarios with @%s or link feature files explicitly", u.ID))
	}

	for _, f := range files {
		rec, err := v.Coverage.ReadCoverage(f.Path)
		if err != nil {
			return err
		}
		testFiles := distinctTestFiles(rec)
		switch {
		case len(testFiles) == 0:
			return workunit.Invalid(
				fmt.Sprintf("No test files cover %s", f.Path),
				"Create a test file for this specification and record its scenario mappings")
		case len(testFiles) > 1:
			return workunit.Invalid(
				fmt.Sprintf("Multiple test files detected for %s: %s — each specification file maps to exactly one test file",
					f.Path, strings.Join(testFiles, ", ")),
				"Consolidate the scenario mappings into a single test file")
		}
	}
	return nil
}

// CheckDoneGate enforces full coverage: every scenario in every linked file
// has at least one test mapping, and some mapping for it carries the
// complete precondition/action/outcome annotations.
func (v *Validator) CheckDoneGate(u *workunit.WorkUnit) error {
	files, err := v.LinkedFiles(u)
	if err != nil {
		return err
	}
	if len(files) == 0 && len(u.Children) > 0 {
		return nil // pure parent, no own scenarios
	}

	for _, f := range files {
		rec, err := v.Coverage.ReadCoverage(f.Path)
		if err != nil {
			return err
		}
		for _, sc := range f.Scenarios {
			cov, ok := rec.Scenario(sc.Name)
			if !ok || len(cov.TestFileMappings) == 0 {
				return workunit.Invalid(
					fmt.Sprintf("Scenario %q in %s has no test mapping", sc.Name, f.Path),
					"Map a test to every scenario before completing this unit")
			}
			if m, complete := bestMapping(cov); !complete {
				missing := m.MissingSteps()
				return workunit.Invalid(
					fmt.Sprintf("Scenario %q in %s is missing %s step annotation(s) in %s",
						sc.Name, f.Path, joinKinds(missing), m.TestFile),
					"Annotate the covering test with precondition, action, and outcome steps")
			}
		}
	}
	return nil
}

// distinctTestFiles returns the sorted set of test files appearing in a
// record's mappings.
func distinctTestFiles(rec *Record) []string {
	seen := map[string]bool{}
	for _, sc := range rec.Scenarios {
		for _, m := range sc.TestFileMappings {
			if m.TestFile != "" {
				seen[m.TestFile] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for tf := range seen {
		out = append(out, tf)
	}
	sort.Strings(out)
	return out
}

// bestMapping picks the mapping with the fewest missing annotations, so the
// failure message names the closest-to-complete test file.
func bestMapping(cov *ScenarioCoverage) (TestFileMapping, bool) {
	best := cov.TestFileMappings[0]
	for _, m := range cov.TestFileMappings {
		if len(m.MissingSteps()) < len(best.MissingSteps()) {
			best = m
		}
	}
	return best, len(best.MissingSteps()) == 0
}

func joinKinds(kinds []StepKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
