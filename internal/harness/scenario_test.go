package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: ok
description: valid scenario
authority: example.auth
steps:
  - op: query
    address: images
    columns: [image_id]
    args: ["1"]
    selection: "_id = ?"
    expect:
      count: 0
assertions:
  - type: notification_count
    count: 0
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", sc.Name)
	assert.Equal(t, "example.auth", sc.Authority)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, []string{"1"}, sc.Steps[0].Args)
	require.NotNil(t, sc.Steps[0].Expect.Count)
	assert.Equal(t, int64(0), *sc.Steps[0].Expect.Count)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\nstep: []\n", "field step not found"},
		{"missing name", "description: d\nsteps: [{op: query, address: images}]\n", "name is required"},
		{"missing description", "name: x\nsteps: [{op: query, address: images}]\n", "description is required"},
		{"no steps", "name: x\ndescription: d\n", "steps list is required"},
		{"no op", "name: x\ndescription: d\nsteps: [{address: images}]\n", "op is required"},
		{"bad op", "name: x\ndescription: d\nsteps: [{op: upsert, address: images}]\n", `unknown op "upsert"`},
		{"insert without values", "name: x\ndescription: d\nsteps: [{op: insert, address: images}]\n", "values are required"},
		{"columns on delete", "name: x\ndescription: d\nsteps: [{op: delete, address: images, columns: [a]}]\n", "query only"},
		{"bad assertion", "name: x\ndescription: d\nsteps: [{op: query, address: images}]\nassertions: [{type: trace_contains}]\n", "unknown assertion type"},
		{"notified without address", "name: x\ndescription: d\nsteps: [{op: query, address: images}]\nassertions: [{type: notified}]\n", "address is required"},
		{"count missing", "name: x\ndescription: d\nsteps: [{op: query, address: images}]\nassertions: [{type: notification_count}]\n", "count is required"},
		{"final_state empty", "name: x\ndescription: d\nsteps: [{op: query, address: images}]\nassertions: [{type: final_state, address: images}]\n", "count or rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_reset.yaml", "a_insert.yml", "notes.txt", "sub/c_query.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_insert.yml"),
		filepath.Join(dir, "b_reset.yaml"),
		filepath.Join(dir, "sub", "c_query.yaml"),
	}, files)

	files, err = FindScenarios(dir, "*_reset")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b_reset.yaml")}, files)
}
