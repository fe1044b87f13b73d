package index_test

import (
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(&index.Config{DataDir: t.TempDir(), Logger: logger.Noop()})
	require.NoError(t, err)
	return idx
}

func key(b byte) index.Key {
	var k index.Key
	k[0] = b
	return k
}

func TestPutGetDelete(t *testing.T) {
	idx := newIndex(t)

	_, had := idx.Get(key(1))
	require.False(t, had)

	prev, hadPrev := idx.Put(key(1), index.RecordPointer{Segment: 1, Offset: 10, Size: 20})
	require.False(t, hadPrev)
	require.Zero(t, prev)

	rp, ok := idx.Get(key(1))
	require.True(t, ok)
	require.Equal(t, uint64(1), rp.Segment)

	prev, hadPrev = idx.Put(key(1), index.RecordPointer{Segment: 2, Offset: 30, Size: 40})
	require.True(t, hadPrev)
	require.Equal(t, uint64(1), prev.Segment)

	deleted, hadPrev := idx.Delete(key(1))
	require.True(t, hadPrev)
	require.Equal(t, uint64(2), deleted.Segment)

	_, ok = idx.Get(key(1))
	require.False(t, ok)
}

func TestLenAndKeys(t *testing.T) {
	idx := newIndex(t)
	idx.Put(key(1), index.RecordPointer{Segment: 1, Offset: 0, Size: 1})
	idx.Put(key(2), index.RecordPointer{Segment: 1, Offset: 1, Size: 1})
	require.Equal(t, 2, idx.Len())
	require.Len(t, idx.Keys(), 2)
}

func TestSnapshotRoundTrip(t *testing.T) {
	idx := newIndex(t)
	idx.Put(key(1), index.RecordPointer{Segment: 3, Offset: 99, Size: 12})
	idx.Put(key(2), index.RecordPointer{Segment: 4, Offset: 5, Size: 6})

	dir := t.TempDir()
	path := filepath.Join(dir, "index.4")
	repoID := [16]byte{1, 2, 3, 4}

	require.NoError(t, idx.WriteSnapshot(path, repoID))

	loaded, err := index.ReadSnapshot(path, repoID, &index.Config{DataDir: dir, Logger: logger.Noop()})
	require.NoError(t, err)
	require.Equal(t, idx.Len(), loaded.Len())

	rp, ok := loaded.Get(key(1))
	require.True(t, ok)
	require.Equal(t, uint64(3), rp.Segment)
	require.Equal(t, int64(99), rp.Offset)
}

func TestSnapshotRejectsWrongRepoID(t *testing.T) {
	idx := newIndex(t)
	idx.Put(key(1), index.RecordPointer{Segment: 1, Offset: 0, Size: 1})

	dir := t.TempDir()
	path := filepath.Join(dir, "index.1")
	require.NoError(t, idx.WriteSnapshot(path, [16]byte{9}))

	_, err := index.ReadSnapshot(path, [16]byte{1}, &index.Config{DataDir: dir, Logger: logger.Noop()})
	require.Error(t, err)
}
