package checker_test

import (
	"os"
	"testing"

	"github.com/iamNilotpal/ignite/internal/checker"
	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/iamNilotpal/ignite/pkg/seginfo"
	"github.com/stretchr/testify/require"
)

func newSource(t *testing.T) (*checker.Source, *segment.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	log := logger.Noop()

	opts := options.NewDefaultOptions()
	opts.DataDir = dir

	segMgr, err := segment.New(&segment.Config{Options: &opts, Logger: log})
	require.NoError(t, err)

	idx, err := index.New(&index.Config{DataDir: dir, Logger: log})
	require.NoError(t, err)

	return &checker.Source{
		SegMgr: segMgr,
		Idx:    idx,
		Ct:     hints.NewCompactTable(),
		Si:     hints.NewShadowIndex(),
		Log:    log,
	}, segMgr, dir
}

func TestCheckCleanRepositoryHasNoFindings(t *testing.T) {
	src, segMgr, _ := newSource(t)

	require.NoError(t, segMgr.OpenForAppend(1))
	segID, offset, size, err := segMgr.WritePut([32]byte{1}, []byte("hello"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{1}, index.RecordPointer{Segment: segID, Offset: offset, Size: size})
	_, err = segMgr.WriteCommit()
	require.NoError(t, err)

	report, err := checker.Check(src, checker.Options{})
	require.NoError(t, err)
	require.False(t, report.HasFindings())
	require.Equal(t, 1, report.SegmentsOK)
}

func TestCheckFindsMissingSegment(t *testing.T) {
	src, segMgr, _ := newSource(t)

	require.NoError(t, segMgr.OpenForAppend(1))
	segID, offset, size, err := segMgr.WritePut([32]byte{2}, []byte("v"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{2}, index.RecordPointer{Segment: segID, Offset: offset, Size: size})
	_, err = segMgr.WriteCommit()
	require.NoError(t, err)
	require.NoError(t, segMgr.DeleteSegment(segID))

	report, err := checker.Check(src, checker.Options{Repair: true})
	require.NoError(t, err)
	require.True(t, report.HasFindings())
	require.Equal(t, checker.FindingMissingSegment, report.Findings[0].Kind)

	_, ok := src.Idx.Get(index.Key{2})
	require.False(t, ok)
}

// TestCheckRepairDropsCorruptEntryFromIndex corrupts an already-superseded
// segment (not the highest committed one) so highestCommitted still finds a
// good tail and the per-segment walk, not the torn-commit path, is what
// discovers the damage.
func TestCheckRepairDropsCorruptEntryFromIndex(t *testing.T) {
	src, segMgr, dir := newSource(t)

	require.NoError(t, segMgr.OpenForAppend(1))
	seg1ID, off1, size1, err := segMgr.WritePut([32]byte{3}, []byte("intact"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{3}, index.RecordPointer{Segment: seg1ID, Offset: off1, Size: size1})

	_, off2, size2, err := segMgr.WritePut([32]byte{4}, []byte("will-be-corrupted"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{4}, index.RecordPointer{Segment: seg1ID, Offset: off2, Size: size2})

	_, err = segMgr.WriteCommit()
	require.NoError(t, err)

	require.NoError(t, segMgr.OpenForAppend(seg1ID+1))
	seg2ID, off3, size3, err := segMgr.WritePut([32]byte{5}, []byte("other segment"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{5}, index.RecordPointer{Segment: seg2ID, Offset: off3, Size: size3})
	_, err = segMgr.WriteCommit()
	require.NoError(t, err)

	path := seginfo.SegmentPath(dir, options.DefaultSegmentDirectory, seg1ID, options.DefaultSegmentsPerDir)
	flipByteAt(t, path, off2+int64(size2)/2)

	report, err := checker.Check(src, checker.Options{Repair: true})
	require.NoError(t, err)
	require.True(t, report.HasFindings())

	_, ok := src.Idx.Get(index.Key{3})
	require.True(t, ok, "entry before the corrupt span must survive")

	_, ok = src.Idx.Get(index.Key{4})
	require.False(t, ok, "entry inside the corrupt span must be dropped")

	_, ok = src.Idx.Get(index.Key{5})
	require.True(t, ok, "entry in the later, intact segment must survive")
}

// TestCheckFlagsEveryUncommittedTrailingSegment writes two trailing segments
// with no COMMIT above the last well-formed commit (not just the highest one) and
// checks that repair mode finds and removes both, mirroring what
// discardUncommittedTail does on reopen.
func TestCheckFlagsEveryUncommittedTrailingSegment(t *testing.T) {
	src, segMgr, _ := newSource(t)

	require.NoError(t, segMgr.OpenForAppend(1))
	segID, offset, size, err := segMgr.WritePut([32]byte{6}, []byte("v"))
	require.NoError(t, err)
	src.Idx.Put(index.Key{6}, index.RecordPointer{Segment: segID, Offset: offset, Size: size})
	_, err = segMgr.WriteCommit()
	require.NoError(t, err)

	require.NoError(t, segMgr.OpenForAppend(segID+1))
	_, _, _, err = segMgr.WritePut([32]byte{7}, []byte("uncommitted-1"))
	require.NoError(t, err)

	require.NoError(t, segMgr.OpenForAppend(segID+2))
	_, _, _, err = segMgr.WritePut([32]byte{8}, []byte("uncommitted-2"))
	require.NoError(t, err)

	report, err := checker.Check(src, checker.Options{Repair: true})
	require.NoError(t, err)
	require.True(t, report.HasFindings())

	var tornIDs []uint64
	for _, f := range report.Findings {
		if f.Kind == checker.FindingTornCommit {
			tornIDs = append(tornIDs, f.SegmentID)
		}
	}
	require.ElementsMatch(t, []uint64{segID + 1, segID + 2}, tornIDs)

	require.False(t, segMgr.SegmentExists(segID+1))
	require.False(t, segMgr.SegmentExists(segID+2))
	require.True(t, segMgr.SegmentExists(segID))
}

func flipByteAt(t *testing.T, path string, offset int64) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	var b [1]byte
	_, err = f.ReadAt(b[:], offset)
	require.NoError(t, err)
	b[0] ^= 0xff
	_, err = f.WriteAt(b[:], offset)
	require.NoError(t, err)
}
