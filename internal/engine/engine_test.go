package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ignite/internal/engine"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, optFns ...options.OptionFunc) *engine.Engine {
	t.Helper()
	dir := t.TempDir()

	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	for _, fn := range optFns {
		fn(&opts)
	}

	e, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, e.Create(context.Background()))

	t.Cleanup(func() { e.Close() })
	return e
}

func h(i uint32) [32]byte {
	var k [32]byte
	k[0] = byte(i >> 24)
	k[1] = byte(i >> 16)
	k[2] = byte(i >> 8)
	k[3] = byte(i)
	return k
}

// S1 basic
func TestBasicPutGetCommit(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Put(h(0), []byte("foo")))
	require.NoError(t, e.Put(h(1), []byte("bar")))
	require.NoError(t, e.Commit(context.Background(), 0))

	v, err := e.Get(h(0))
	require.NoError(t, err)
	require.Equal(t, "foo", string(v))

	v, err = e.Get(h(1))
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))

	entries, err := e.List(0, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// S2 supersede
func TestSupersedeSurvivesIndexLossAndReplay(t *testing.T) {
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir

	e, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, e.Create(context.Background()))

	require.NoError(t, e.Put(h(0), []byte("foo")))
	require.NoError(t, e.Commit(context.Background(), 0))

	require.NoError(t, e.Put(h(0), []byte("bar")))
	require.NoError(t, e.Commit(context.Background(), 0))

	v, err := e.Get(h(0))
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))
	require.NoError(t, e.Close())

	removeGlob(t, filepath.Join(dir, "index.*"))

	e2, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, e2.Open(context.Background()))
	defer e2.Close()

	v, err = e2.Get(h(0))
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))
}

// S3 rollback
func TestRollbackRestoresPreviousValue(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Put(h(0), []byte("foo")))
	require.NoError(t, e.Commit(context.Background(), 0))

	require.NoError(t, e.Put(h(0), []byte("bar")))
	require.NoError(t, e.Rollback())

	v, err := e.Get(h(0))
	require.NoError(t, err)
	require.Equal(t, "foo", string(v))
}

// S4 shadow: a DELETE must never resurrect its key even after the segment
// holding the DELETE itself gets compacted away.
func TestShadowPreventsResurrectionAfterCompaction(t *testing.T) {
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	opts.CompactThreshold = 0.01

	e, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, e.Create(context.Background()))

	require.NoError(t, e.Put(h(1), []byte("1")))
	require.NoError(t, e.Commit(context.Background(), 0))

	require.NoError(t, e.Delete(h(1)))
	require.NoError(t, e.Put(h(2), []byte("2")))
	require.NoError(t, e.Commit(context.Background(), 0))

	require.NoError(t, e.Delete(h(2)))
	require.NoError(t, e.Commit(context.Background(), 0))

	_, err = e.Get(h(1))
	require.Error(t, err)
	require.NoError(t, e.Close())

	removeGlob(t, filepath.Join(dir, "index.*"))

	e2, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, e2.Open(context.Background()))
	defer e2.Close()

	_, err = e2.Get(h(1))
	require.Error(t, err)
}

// S6 max size
func TestMaxDataSizeRejected(t *testing.T) {
	e := newEngine(t, options.WithMaxDataSize(16))

	require.NoError(t, e.Put(h(0), make([]byte, 16)))

	err := e.Put(h(1), make([]byte, 17))
	require.Error(t, err)
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = e.Get(h(1))
	require.Error(t, err)
}

func TestDeleteAbsentKeyIsObjectNotFound(t *testing.T) {
	e := newEngine(t)
	err := e.Delete(h(0))
	require.Error(t, err)
}

func TestListRespectsMarkerAndLimit(t *testing.T) {
	e := newEngine(t)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, e.Put(h(i), []byte("x")))
	}
	require.NoError(t, e.Commit(context.Background(), 0))

	all, err := e.List(0, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)

	marker := [32]byte(all[1].Key)
	rest, err := e.List(0, &marker)
	require.NoError(t, err)
	require.Len(t, rest, 3)

	limited, err := e.List(2, nil)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func removeGlob(t *testing.T, pattern string) {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	require.NoError(t, err)
	for _, m := range matches {
		require.NoError(t, os.Remove(m))
	}
}
