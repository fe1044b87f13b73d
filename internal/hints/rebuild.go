package hints

import (
	"fmt"

	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/segment"
)

// entryReader is the subset of *segment.Manager RebuildSparse needs; kept
// as an interface so tests can supply a fake without standing up real
// files on disk.
type entryReader interface {
	IterEntries(segmentID uint64) (*segment.Iterator, error)
}

// RebuildSparse re-derives a CompactTable from scratch by walking every
// segment in segmentIDs and comparing each PUT/DELETE entry against the
// current, authoritative idx. A segment found to contain no live entries
// has its magic header bytes counted too, so everything in it except its
// COMMIT terminator counts as obsolete and it is eligible for compaction at
// any ordinary threshold.
func RebuildSparse(mgr entryReader, idx *index.Index, segmentIDs []uint64) (*CompactTable, error) {
	ct := NewCompactTable()

	for _, segID := range segmentIDs {
		it, err := mgr.IterEntries(segID)
		if err != nil {
			return nil, fmt.Errorf("rebuild sparse: segment %d: %w", segID, err)
		}

		liveEntries := 0
		for {
			e, ok := it.Next()
			if !ok {
				break
			}

			switch e.Tag {
			case segment.TagPut:
				rp, found := idx.Get(index.Key(e.Key))
				if !found || rp.Segment != segID || rp.Offset != e.Offset {
					ct.Add(segID, uint64(e.Size))
				} else {
					liveEntries++
				}
			case segment.TagDelete:
				ct.Add(segID, uint64(e.Size))
			case segment.TagCommit:
				// Neither live data nor obsolete payload; the terminator's
				// own bytes are not counted toward either bucket.
			}
		}
		it.Close()

		if liveEntries == 0 {
			ct.Add(segID, uint64(len(segment.Magic)))
		}
	}

	return ct, nil
}
