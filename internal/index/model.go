// Package index provides the in-memory hash table mapping object keys to
// their (segment, offset) location on disk, plus the durable snapshot
// format (index.<tid> + index.<tid>.signature) the transaction manager
// writes at every commit.
//
// The index is regenerated whole at every commit; it is not itself
// incrementally journalled. The segment log is the journal - an
// incrementally-journalled index would double the durability problem.
package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// KeySize matches segment.KeySize; duplicated here rather than imported to
// keep this package's wire format self-describing and independent of the
// segment package's internal layout.
const KeySize = 32

// Key is a fixed-width object identifier. Using a comparable array (rather
// than a string conversion on every lookup) avoids a heap allocation per
// index operation.
type Key [KeySize]byte

// RecordPointer is the minimal metadata needed to locate one entry on disk:
// which segment it lives in, its byte offset within that segment, and its
// total framed size (so a read can size its buffer without a second seek).
type RecordPointer struct {
	Segment uint64
	Offset  int64
	Size    uint32
}

// Index is the in-memory key -> RecordPointer table. All mutation and
// lookup is synchronized by mu; the transaction manager is the only
// concurrent-safe caller expected (single-writer, but get() may be called
// from a concurrent reader path in future remote-proxy variants).
type Index struct {
	dataDir string
	log     *zap.SugaredLogger

	mu sync.RWMutex
	m  map[Key]RecordPointer

	closed atomic.Bool
}

// Config carries the parameters required to initialize an Index.
type Config struct {
	DataDir string
	Logger  *zap.SugaredLogger
}
