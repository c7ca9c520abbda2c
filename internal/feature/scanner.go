// Package feature reads Gherkin specification files just deeply enough for
// coverage validation: feature/scenario names, tags, and line numbers. It
// is not a full Gherkin parser; step text passes through untouched.
package feature

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scenario is one scenario (or scenario outline) in a feature file.
type Scenario struct {
	Name string
	Tags []string // tags on the scenario itself, without the leading @
	Line int      // 1-based line of the Scenario: keyword
}

// File is a scanned feature file.
type File struct {
	Path      string
	Name      string   // text after the Feature: keyword
	Tags      []string // feature-level tags
	Scenarios []Scenario
}

// Reader resolves a directory of specification files. The transition engine
// and coverage validator depend on this interface; DirReader is the disk
// implementation and tests substitute a map-backed fake.
type Reader interface {
	// LoadFeatures scans dir recursively for *.feature files.
	LoadFeatures(dir string) ([]*File, error)
	// LoadFeature parses a single file by path.
	LoadFeature(path string) (*File, error)
}

// DirReader scans feature files on disk.
type DirReader struct{}

// LoadFeatures walks dir and parses every .feature file, sorted by path for
// deterministic output. A missing directory yields an empty slice: a
// project without specs simply has nothing tagged yet.
func (DirReader) LoadFeatures(dir string) ([]*File, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".feature") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan features in %s: %w", dir, err)
	}
	sort.Strings(paths)

	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := (DirReader{}).LoadFeature(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFeature parses one feature file.
func (DirReader) LoadFeature(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature file %s: %w", path, err)
	}
	defer fh.Close()

	f := &File{Path: path}
	var pendingTags []string
	lineNo := 0

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "@"):
			pendingTags = append(pendingTags, parseTags(line)...)
		case strings.HasPrefix(line, "Feature:"):
			f.Name = strings.TrimSpace(strings.TrimPrefix(line, "Feature:"))
			f.Tags = pendingTags
			pendingTags = nil
		case strings.HasPrefix(line, "Scenario Outline:"):
			f.Scenarios = append(f.Scenarios, Scenario{
				Name: strings.TrimSpace(strings.TrimPrefix(line, "Scenario Outline:")),
				Tags: pendingTags,
				Line: lineNo,
			})
			pendingTags = nil
		case strings.HasPrefix(line, "Scenario:"):
			f.Scenarios = append(f.Scenarios, Scenario{
				Name: strings.TrimSpace(strings.TrimPrefix(line, "Scenario:")),
				Tags: pendingTags,
				Line: lineNo,
			})
			pendingTags = nil
		default:
			// Steps, Background, Examples tables: tags never attach to
			// these, so any pending tags belong to the next scenario.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feature file %s: %w", path, err)
	}
	return f, nil
}

// parseTags splits a tag line ("@AUTH-1 @wip") into bare tag names.
func parseTags(line string) []string {
	var tags []string
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, "@") && len(field) > 1 {
			tags = append(tags, field[1:])
		}
	}
	return tags
}

// HasTag reports whether tag appears on the file or any of its scenarios.
func (f *File) HasTag(tag string) bool {
	if containsTag(f.Tags, tag) {
		return true
	}
	for _, sc := range f.Scenarios {
		if containsTag(sc.Tags, tag) {
			return true
		}
	}
	return false
}

// ScenariosTagged returns the scenarios carrying tag, counting
// feature-level tags as applying to every scenario.
func (f *File) ScenariosTagged(tag string) []Scenario {
	if containsTag(f.Tags, tag) {
		return f.Scenarios
	}
	var out []Scenario
	for _, sc := range f.Scenarios {
		if containsTag(sc.Tags, tag) {
			out = append(out, sc)
		}
	}
	return out
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
