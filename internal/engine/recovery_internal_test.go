package engine

import (
	"context"
	"testing"

	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

// S5 torn commit: a PUT written to the log but never followed by a
// well-formed COMMIT must not be visible after reopening - recovery
// discards the whole trailing segment and the repository reverts to its
// last true commit point.
func TestTornCommitDiscardedOnReopen(t *testing.T) {
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	log := logger.Noop()

	e, err := New(&Config{Options: &opts, Logger: log})
	require.NoError(t, err)
	require.NoError(t, e.Create(context.Background()))

	require.NoError(t, e.Put([32]byte{0}, []byte("v")))
	require.NoError(t, e.Commit(context.Background(), 0))

	require.NoError(t, e.Put([32]byte{0}, []byte("w")))
	// Simulate a crash: the PUT above is flushed to the active segment file
	// (appendFrame does not buffer), but no COMMIT entry was ever appended
	// or fsynced. Release the lock the way process exit would, without
	// running the engine's own rollback/Close path - that path would
	// truncate the segment itself, which is exactly the in-memory cleanup a
	// real crash never gets to perform.
	require.NoError(t, e.lockMgr.Release())

	e2, err := New(&Config{Options: &opts, Logger: log})
	require.NoError(t, err)
	require.NoError(t, e2.Open(context.Background()))
	defer e2.Close()

	v, err := e2.Get([32]byte{0})
	require.NoError(t, err)
	require.Equal(t, "v", string(v))
}

// Rollback must undo the compact-table accounting a Put/Delete added, not
// just the index/shadow state - otherwise a reverted overwrite leaves its
// segment looking more obsolete than it actually is.
func TestRollbackRevertsCompactTableAccounting(t *testing.T) {
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	log := logger.Noop()

	e, err := New(&Config{Options: &opts, Logger: log})
	require.NoError(t, err)
	require.NoError(t, e.Create(context.Background()))

	require.NoError(t, e.Put([32]byte{9}, []byte("first")))
	require.NoError(t, e.Commit(context.Background(), 0))
	firstSegment := e.segMgr.ActiveID()

	before := e.compact.Get(firstSegment)

	require.NoError(t, e.Put([32]byte{9}, []byte("second")))
	require.NoError(t, e.Rollback())

	after := e.compact.Get(firstSegment)
	require.Equal(t, before, after, "rollback must leave compact-table accounting exactly as it was before the reverted op")
}
