package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dataprovider/internal/store"
)

// FileStore opens a store in a fresh temp directory and closes it when the
// test ends. File stores exercise the separate read-only handle and reset
// file removal; use store.OpenMemory when neither matters.
func FileStore(t testing.TB) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "provider.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
