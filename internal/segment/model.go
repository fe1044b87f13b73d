// Package segment implements the append-only, framed segment log: the
// leaf-most component of the repository engine. A segment is a file named
// by a monotonically increasing 64-bit id, bucketed under
// <dataDir>/<segmentDir>/<id/segmentsPerDir>/<id>, beginning with a fixed
// magic header and containing a sequence of length-prefixed, CRC32C-checked
// entries: PUT, DELETE, and the terminal COMMIT marker.
package segment

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignite/pkg/options"
	"go.uber.org/zap"
)

// KeySize is the fixed width, in bytes, of every object key.
const KeySize = 32

// EntryTag identifies the kind of a segment entry.
type EntryTag uint8

const (
	// TagPut marks an entry that carries a key and its payload.
	TagPut EntryTag = 0
	// TagDelete marks an entry that tombstones a key; carries no payload.
	TagDelete EntryTag = 1
	// TagCommit terminates a segment; carries neither key nor payload. A
	// well-formed segment contains at most one, and it must be last.
	TagCommit EntryTag = 2
)

func (t EntryTag) String() string {
	switch t {
	case TagPut:
		return "PUT"
	case TagDelete:
		return "DELETE"
	case TagCommit:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// headerLen is the fixed size, in bytes, of the length+crc+tag prefix every
// entry begins with, regardless of kind.
const headerLen = 4 + 4 + 1

// Magic is the fixed 8-byte sequence every segment file begins with.
var Magic = [8]byte{'I', 'G', 'N', 'S', 'E', 'G', '0', '1'}

// Entry is one decoded record read back from a segment.
type Entry struct {
	Tag     EntryTag
	Key     [KeySize]byte
	Payload []byte
	Offset  int64  // Byte offset of the entry's header within the segment file.
	Size    uint32 // Total framed size of the entry, including its header.
}

// Config carries everything Manager needs to locate and bound segment
// files. It does not decide which segment is "active" - that is a
// replay/recovery decision the caller (the transaction manager) makes and
// communicates via OpenForAppend.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Manager owns the single active write segment and provides read access to
// any segment on disk, live or historical. It mirrors the single-active-file
// design of a conventional append-only log: exactly one os.File is open for
// writing at a time; reads against other segments open and close their own
// file handle per call.
type Manager struct {
	mu sync.Mutex

	dataDir        string
	segmentDir     string
	segmentsPerDir uint64
	maxSize        uint64

	activeID   uint64
	activeFile *os.File
	activeSize int64

	closed atomic.Bool
	log    *zap.SugaredLogger
}
