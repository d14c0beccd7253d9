package mathexpr_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanersaydam/mathexpr/internal/cli"
	"github.com/tanersaydam/mathexpr/internal/testutil"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	require.NoError(t, err, "failed to list scenarios")
	require.NotEmpty(t, dirs, "no scenarios found")

	for _, dir := range dirs {
		scenario, err := testutil.LoadScenario(dir)
		require.NoError(t, err, "failed to load scenario")
		t.Run(scenario.Name, func(t *testing.T) {
			runScenario(t, scenario)
		})
	}
}

func runScenario(t *testing.T, scenario *testutil.Scenario) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	work := t.TempDir()
	require.NoError(t, scenario.Materialize(work), "failed to write scenario files")
	expand := func(s string) string {
		return strings.ReplaceAll(s, "$DIR", work)
	}

	args := make([]string, len(scenario.Cmd))
	for i, arg := range scenario.Cmd {
		args[i] = expand(arg)
	}

	var stdout, stderr bytes.Buffer
	app := &cli.App{
		Stdin:  strings.NewReader(scenario.Stdin),
		Stdout: &stdout,
		Stderr: &stderr,
		Dir:    work,
	}
	exitCode := app.Run(context.Background(), args)

	exp := scenario.Expect
	assert.Equal(t, exp.ExitCode, exitCode, "exit code\nstderr: %s", stderr.String())

	if exp.StdoutText != "" {
		assert.Equal(t, expand(exp.StdoutText), stdout.String(), "stdout")
	}
	if exp.StdoutContains != "" {
		assert.Contains(t, stdout.String(), expand(exp.StdoutContains), "stdout")
	}
	if exp.StderrText != "" {
		assert.Equal(t, expand(exp.StderrText), stderr.String(), "stderr")
	}
	if exp.StderrContains != "" {
		assert.Contains(t, stderr.String(), expand(exp.StderrContains), "stderr")
	}
	if len(exp.StderrJSONSubset) > 0 {
		checkStderrJSONSubset(t, stderr.String(), exp.StderrJSONSubset)
	}

	for name, want := range exp.FilesText {
		data, err := os.ReadFile(filepath.Join(work, filepath.FromSlash(name)))
		if assert.NoError(t, err, "reading %s", name) {
			assert.Equal(t, expand(want), string(data), name)
		}
	}
}

func checkStderrJSONSubset(t *testing.T, stderr string, expected []map[string]any) {
	t.Helper()

	var actualDiags []map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stderr)), &actualDiags),
		"stderr is not a JSON diagnostic list:\n%s", stderr)

	for _, exp := range expected {
		found := false
		for _, actual := range actualDiags {
			if testutil.IsSubset(exp, actual) {
				found = true
				break
			}
		}
		assert.True(t, found, "stderr JSON subset not found: %v\n  in: %v", exp, actualDiags)
	}
}
