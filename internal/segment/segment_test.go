package segment_test

import (
	"testing"

	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *segment.Manager {
	t.Helper()
	dataDir := t.TempDir()

	opts := options.NewDefaultOptions()
	opts.DataDir = dataDir
	opts.SegmentOptions.Size = 4096
	opts.SegmentOptions.SegmentsPerDir = 10

	mgr, err := segment.New(&segment.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, mgr.OpenForAppend(1))
	return mgr
}

func key(b byte) [segment.KeySize]byte {
	var k [segment.KeySize]byte
	k[0] = b
	return k
}

func TestWritePutReadAtRoundTrip(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	segID, offset, size, err := mgr.WritePut(key(1), []byte("hello"))
	require.NoError(t, err)
	require.NotZero(t, size)

	entry, err := mgr.ReadAt(segID, offset)
	require.NoError(t, err)
	require.Equal(t, segment.TagPut, entry.Tag)
	require.Equal(t, key(1), entry.Key)
	require.Equal(t, []byte("hello"), entry.Payload)
}

func TestWriteDeleteHasNoPayload(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	segID, offset, _, err := mgr.WriteDelete(key(2))
	require.NoError(t, err)

	entry, err := mgr.ReadAt(segID, offset)
	require.NoError(t, err)
	require.Equal(t, segment.TagDelete, entry.Tag)
	require.Empty(t, entry.Payload)
}

func TestIsCommittedRequiresTrailingCommit(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	_, _, _, err := mgr.WritePut(key(3), []byte("v"))
	require.NoError(t, err)

	committed, err := mgr.IsCommitted(1)
	require.NoError(t, err)
	require.False(t, committed)

	_, err = mgr.WriteCommit()
	require.NoError(t, err)

	committed, err = mgr.IsCommitted(1)
	require.NoError(t, err)
	require.True(t, committed)
}

func TestIterEntriesStopsAtTornTail(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	_, _, size1, err := mgr.WritePut(key(4), []byte("a"))
	require.NoError(t, err)
	_, _, size2, err := mgr.WritePut(key(5), []byte("b"))
	require.NoError(t, err)

	// Truncate off the last few bytes of the second entry to simulate a
	// torn write.
	total := int64(len(segment.Magic)) + int64(size1) + int64(size2)
	require.NoError(t, mgr.TruncateActive(total-2))

	it, err := mgr.IterEntries(1)
	require.NoError(t, err)
	defer it.Close()

	var entries []segment.Entry
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
	}

	require.Len(t, entries, 1)
	require.Equal(t, key(4), entries[0].Key)
	require.Error(t, it.Err())
}

func TestWritePutRotatesOnSoftSizeLimit(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	payload := make([]byte, 3000)
	seg1, _, _, err := mgr.WritePut(key(6), payload)
	require.NoError(t, err)

	seg2, _, _, err := mgr.WritePut(key(7), payload)
	require.NoError(t, err)

	require.NotEqual(t, seg1, seg2)
	require.Equal(t, seg1+1, seg2)
}

func TestListAndDeleteSegments(t *testing.T) {
	mgr := newManager(t)
	defer mgr.Close()

	_, _, _, err := mgr.WritePut(key(8), []byte("x"))
	require.NoError(t, err)
	require.NoError(t, mgr.OpenForAppend(2))
	_, _, _, err = mgr.WritePut(key(9), []byte("y"))
	require.NoError(t, err)

	ids, err := mgr.ListSegments()
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)

	require.NoError(t, mgr.DeleteSegment(1))
	ids, err = mgr.ListSegments()
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, ids)
}
