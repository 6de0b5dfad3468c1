package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

func int64p(n int64) *int64 { return &n }
func intp(n int) *int       { return &n }

func singleInsert() *Scenario {
	return &Scenario{
		Name:        "single_insert",
		Description: "insert one image and read it back",
		Steps: []Step{
			{
				Op:      OpInsert,
				Address: "images",
				Values:  map[string]any{"image_id": "k1", "title": "cat"},
				Expect:  &Expect{Address: "images/k1"},
			},
			{
				Op:      OpQuery,
				Address: "images/k1",
				Expect:  &Expect{Count: int64p(1)},
			},
		},
		Assertions: []Assertion{
			{Type: AssertNotified, Address: "images/k1"},
		},
	}
}

func TestRun_SingleInsert(t *testing.T) {
	result, err := Run(context.Background(), singleInsert())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, EventStep, result.Trace[0].Type)
	assert.Equal(t, "content://la.il.sample/images/k1", result.Trace[0].Result)

	assert.Equal(t, EventNotification, result.Trace[1].Type)
	assert.Equal(t, int64(1), result.Trace[1].Seq)
	assert.Equal(t, "evt-0001", result.Trace[1].ID)

	assert.Equal(t, OpQuery, result.Trace[2].Op)
	require.Len(t, result.Changes, 1)
}

func TestRunWithGolden_SingleInsert(t *testing.T) {
	RunWithGolden(t, singleInsert())
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(context.Background(), singleInsert())
	require.NoError(t, err)
	second, err := Run(context.Background(), singleInsert())
	require.NoError(t, err)

	a, err := Snapshot(singleInsert(), first)
	require.NoError(t, err)
	b, err := Snapshot(singleInsert(), second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	sc := &Scenario{
		Name:        "mismatch",
		Description: "every expectation is wrong",
		Steps: []Step{
			{Op: OpInsert, Address: "images", Values: map[string]any{"image_id": "k1"},
				Expect: &Expect{Address: "images/other"}},
			{Op: OpQuery, Address: "images", Expect: &Expect{Count: int64p(5)}},
			{Op: OpQuery, Address: "videos"},
			{Op: OpType, Address: "images", Expect: &Expect{Error: "UNKNOWN_RESOURCE"}},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected address")
	assert.Contains(t, result.Errors[1], "expected count 5, got 1")
	assert.Contains(t, result.Errors[2], "unexpected error UNKNOWN_RESOURCE")
	assert.Contains(t, result.Errors[3], "got success")
}

func TestRun_RowsMismatch(t *testing.T) {
	sc := &Scenario{
		Name:        "rows",
		Description: "row subset mismatch",
		Steps: []Step{
			{Op: OpInsert, Address: "images", Values: map[string]any{"image_id": "k1", "title": "a"}},
			{Op: OpQuery, Address: "images", Expect: &Expect{
				Rows: []map[string]any{{"title": "b"}},
			}},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rows[0].title")
}

func TestRun_BadAddressIsRunError(t *testing.T) {
	sc := &Scenario{
		Name:        "bad",
		Description: "unparseable address",
		Steps:       []Step{{Op: OpQuery, Address: "content:///images"}},
	}

	_, err := Run(context.Background(), sc)
	assert.Error(t, err)
}

func TestRun_Assertions(t *testing.T) {
	sc := &Scenario{
		Name:        "assertions",
		Description: "assertion failures are reported",
		Steps: []Step{
			{Op: OpInsert, Address: "images?caller_is_sync_agent=1", Values: map[string]any{"image_id": "quiet"}},
			{Op: OpInsert, Address: "images", Values: map[string]any{"image_id": "loud"}},
		},
		Assertions: []Assertion{
			{Type: AssertNotified, Address: "images/quiet"},
			{Type: AssertNotNotified, Address: "images/loud"},
			{Type: AssertNotificationCount, Count: intp(2)},
			{Type: AssertFinalState, Address: "images", Count: intp(1)},
			{Type: AssertNotificationCount, Address: "images/loud", Count: intp(1)},
			{Type: AssertFinalState, Address: "images/quiet", Rows: []map[string]any{{"image_id": "quiet"}}},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Assertion failed: notified")
	assert.Contains(t, result.Errors[1], "Assertion failed: not_notified")
	assert.Contains(t, result.Errors[2], "Assertion failed: notification_count")
	assert.Contains(t, result.Errors[3], "Assertion failed: final_state")
}

func TestRun_CallerRegistersInterestWithoutTraceNoise(t *testing.T) {
	sc := &Scenario{
		Name:        "caller",
		Description: "reads with a caller",
		Steps: []Step{
			{Op: OpQuery, Address: "images", Caller: "viewer", Expect: &Expect{Count: int64p(0)}},
		},
	}

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Notifications())
}

// TestScenarios runs the shipped scenarios and snapshots each twice through
// goldie to prove the trace is stable.
func TestScenarios(t *testing.T) {
	files, err := FindScenarios(scenariosDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	fixtures := t.TempDir()

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(context.Background(), sc)
			require.NoError(t, err)
			require.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))

			data, err := Snapshot(sc, result)
			require.NoError(t, err)

			g := goldie.New(t, goldie.WithFixtureDir(fixtures), goldie.WithNameSuffix(".golden"))
			require.NoError(t, g.Update(t, sc.Name, data))

			again, err := Run(context.Background(), sc)
			require.NoError(t, err)
			AssertGolden(t, sc, again, fixtures)
		})
	}
}

func TestGoldenPathHelpers(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "reset.yaml")
	path := GoldenPath(scenario)
	assert.Equal(t, filepath.Join(dir, "golden", "reset.golden"), path)

	_, err := CompareGolden(path, []byte("x"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, WriteGolden(path, []byte("x")))
	ok, err := CompareGolden(path, []byte("x"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CompareGolden(path, []byte("y"))
	require.NoError(t, err)
	assert.False(t, ok)
}
