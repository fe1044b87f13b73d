// Package hints implements the compact table and shadow index: the two
// auxiliary structures the transaction manager consults to decide which
// segments are worth compacting and which DELETE tombstones are still
// load-bearing. Both are persisted together in a single hints.<tid>
// snapshot alongside the index.<tid> snapshot written at the same commit.
package hints

import (
	"sync"

	"github.com/iamNilotpal/ignite/internal/index"
)

// CompactTable maps segment id to the number of bytes within that segment
// known to be obsolete: superseded PUTs, and DELETEs once their own
// self-accounting has counted them. It is a heuristic input to compaction
// only - losing it entirely just means rebuild (RebuildSparse) has to walk
// the log again, never a correctness problem.
type CompactTable struct {
	mu       sync.RWMutex
	obsolete map[uint64]uint64
}

// NewCompactTable returns an empty table.
func NewCompactTable() *CompactTable {
	return &CompactTable{obsolete: make(map[uint64]uint64)}
}

// ShadowIndex maps a key to the ordered list of segment ids that contain a
// superseded-or-deleted copy of it. A DELETE may only be dropped during
// compaction once every older shadowed segment is gone.
type ShadowIndex struct {
	mu sync.RWMutex
	m  map[index.Key][]uint64
}

// NewShadowIndex returns an empty shadow index.
func NewShadowIndex() *ShadowIndex {
	return &ShadowIndex{m: make(map[index.Key][]uint64)}
}
