package hints_test

import (
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/stretchr/testify/require"
)

func key(b byte) index.Key {
	var k index.Key
	k[0] = b
	return k
}

func TestCompactTableEligibility(t *testing.T) {
	ct := hints.NewCompactTable()
	ct.Add(1, 50)
	require.Equal(t, uint64(50), ct.Get(1))
	require.True(t, ct.Eligible(1, 100, 0.1))
	require.False(t, ct.Eligible(1, 1000, 0.1))

	ct.Delete(1)
	require.Equal(t, uint64(0), ct.Get(1))
}

func TestShadowIndexCanDropDelete(t *testing.T) {
	si := hints.NewShadowIndex()
	k := key(1)
	si.Append(k, 2) // PUT in segment 2 shadowed
	si.Append(k, 3) // another shadowed copy in segment 3

	exists := func(id uint64) bool { return id != 2 } // segment 2 is gone

	// Segment 3 still exists and is not yet discharged: DELETE in segment 5
	// (newer than both) must not be dropped yet.
	discharged := func(id uint64) bool { return id == 2 }
	require.False(t, si.CanDropDelete(k, 5, discharged))

	si.Prune(k, exists)
	require.Equal(t, []uint64{3}, si.Get(k))

	discharged = func(id uint64) bool { return true }
	require.True(t, si.CanDropDelete(k, 5, discharged))
}

func TestShadowIndexPruneToEmptyDropsKey(t *testing.T) {
	si := hints.NewShadowIndex()
	k := key(2)
	si.Append(k, 1)
	si.Prune(k, func(uint64) bool { return false })
	require.Empty(t, si.Get(k))
}

func TestSnapshotRoundTrip(t *testing.T) {
	ct := hints.NewCompactTable()
	ct.Add(1, 10)
	ct.Add(2, 20)

	si := hints.NewShadowIndex()
	si.Append(key(1), 1)
	si.Append(key(1), 2)

	path := filepath.Join(t.TempDir(), "hints.2")
	require.NoError(t, hints.WriteSnapshot(path, ct, si))

	loadedCT, loadedSI, err := hints.ReadSnapshot(path)
	require.NoError(t, err)
	require.Equal(t, uint64(10), loadedCT.Get(1))
	require.Equal(t, uint64(20), loadedCT.Get(2))
	require.Equal(t, []uint64{1, 2}, loadedSI.Get(key(1)))
}
