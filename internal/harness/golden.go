package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dataprovider/internal/record"
)

// Snapshot renders a run as canonical JSON. Identical runs produce
// identical bytes.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		trace[i] = e.canonical()
	}

	return record.MarshalCanonical(map[string]any{
		"scenario_name": scenario.Name,
		"trace":         trace,
	})
}

// RunWithGolden runs scenario and compares its snapshot against
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	AssertGolden(t, scenario, result, "testdata/golden")
	return result
}

// AssertGolden compares an existing result against the golden file in
// fixtureDir.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result, fixtureDir string) {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		t.Fatalf("snapshot %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}

// GoldenPath returns the golden file that sits beside a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden stores data at path, creating the directory if needed.
func WriteGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether data equals the golden file at path. A
// missing file is reported through os.ErrNotExist.
func CompareGolden(path string, data []byte) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return string(golden) == string(data), nil
}
