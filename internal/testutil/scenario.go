// Package testutil loads the YAML conformance scenarios shared by the
// mathexpr test suites.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario root relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one CLI invocation and its expected outcome, loaded from a
// scenario.yaml file.
type Scenario struct {
	Name string `yaml:"-"`
	Dir  string `yaml:"-"`

	Cmd   []string `yaml:"cmd"`
	Stdin string   `yaml:"stdin,omitempty"`
	// Files are written into a scratch directory before the run; the
	// command runs with that directory as its working directory.
	Files map[string]string `yaml:"files,omitempty"`
	Tags  []string          `yaml:"tags,omitempty"`

	Expect ExpectedResult `yaml:"expect"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode       int    `yaml:"exitCode"`
	StdoutText     string `yaml:"stdoutText,omitempty"`
	StdoutContains string `yaml:"stdoutContains,omitempty"`
	StderrText     string `yaml:"stderrText,omitempty"`
	StderrContains string `yaml:"stderrContains,omitempty"`
	// StderrJSONSubset lists diagnostics that must each match (as a
	// subset) one of the diagnostics written to stderr.
	StderrJSONSubset []map[string]any `yaml:"stderrJsonSubset,omitempty"`
	// FilesText maps scratch-dir files to their expected content after
	// the run.
	FilesText map[string]string `yaml:"filesText,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.yaml"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("%s: scenario has no cmd", dir)
	}
	s.Name = filepath.Base(dir)
	s.Dir = dir
	return &s, nil
}

// ListScenarios returns all scenario directories under root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.yaml")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Materialize writes the scenario's files into dir.
func (s *Scenario) Materialize(dir string) error {
	for name, content := range s.Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// IsSubset reports whether expected is a subset of actual, comparing
// decoded JSON/YAML values. Numbers compare by value regardless of their
// Go type.
func IsSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !IsSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !IsSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case nil:
		return actual == nil
	}

	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}
	return expected == actual
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
