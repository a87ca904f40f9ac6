package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// FindScenarios returns the .yaml and .yml files in dir, sorted by name.
// A non-empty filter keeps only files whose base name contains it.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	slices.Sort(paths)
	return paths, nil
}

// RunSuite loads and runs each scenario file. check, when non-nil, is called
// with every result that passed its own assertions and may fail it, e.g.
// by comparing the document text against a golden file.
func RunSuite(paths []string, check func(*Scenario, *Result) error) *SuiteResult {
	suite := &SuiteResult{}

	for _, path := range paths {
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail("", path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !result.Pass {
			suite.fail(scenario.Name, path, fmt.Sprintf("scenario assertions failed: %s", strings.Join(result.Errors, "; ")))
			continue
		}

		if check != nil {
			if err := check(scenario, result); err != nil {
				suite.fail(scenario.Name, path, err.Error())
				continue
			}
		}

		suite.Passed++
	}

	return suite
}

func (s *SuiteResult) fail(name, path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Scenario: name, Path: path, Error: msg})
}
