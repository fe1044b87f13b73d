// Package engine implements the transaction manager: the put/delete/commit/
// rollback state machine that ties together the segment log, the index, the
// compaction hints and the repository lock into the single component
// clients of the repository actually see.
//
// The engine owns three pieces of in-memory state across the lifetime of an
// open repository - the index, the compact table, and the shadow index -
// and drives two on-disk subsystems it does not own: the segment log
// (internal/segment) and the lock file (internal/lock). Nothing inside the
// engine schedules background work; every operation, including compaction,
// runs synchronously inside the caller's commit() call.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/lock"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/options"
	"go.uber.org/zap"
)

// State is the engine's lifecycle state.
type State int

const (
	// StateClosed: only Open and Create are legal; Destroy requires an open
	// repository.
	StateClosed State = iota
	// StateOpenClean: no mutation pending since the last commit or open.
	StateOpenClean
	// StateOpenDirty: at least one put/delete has been appended to the
	// current write segment since the last commit.
	StateOpenDirty
)

func (s State) String() string {
	switch s {
	case StateOpenClean:
		return "open-clean"
	case StateOpenDirty:
		return "open-dirty"
	default:
		return "closed"
	}
}

// Config carries everything needed to construct an Engine. Unlike the
// segment/index/hints packages, Engine is constructed once per process and
// does not itself open a repository - call Open or Create on the returned
// value to do that (Destroy is only accepted once a repository is open).
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// pendingOp records one mutation appended to the current write segment
// since the last commit, so Rollback can undo it precisely: restoring the
// index/shadow/compact state it displaced. The segment itself is truncated
// back to the offset the whole transaction started at (segmentStartOffset).
type pendingOp struct {
	key         index.Key
	hadPrev     bool
	prev        index.RecordPointer
	wasDelete   bool
	shadowAdded bool // whether this op pushed an entry onto the shadow index that must be popped on rollback.

	// selfSegment/selfBytes record the DELETE tombstone's own self-obsolete
	// compact-table entry (added by Delete so the tombstone's bytes become
	// compactable once every shadowing obligation is discharged). Zero for
	// Put ops, which never add such an entry.
	selfSegment uint64
	selfBytes   uint64
}

// Engine is the transaction manager. It is not safe for concurrent use by
// more than one goroutine at a time - one writer or many readers per
// repository, never both, with the lock package enforcing that across
// processes.
type Engine struct {
	mu sync.Mutex

	opts *options.Options
	log  *zap.SugaredLogger

	dir    string
	repoID [16]byte

	state  State
	closed atomic.Bool

	lockMgr *lock.Manager
	segMgr  *segment.Manager
	idx     *index.Index
	compact *hints.CompactTable
	shadow  *hints.ShadowIndex

	// segmentStartOffset is the active segment's size at the moment the
	// current transaction began (i.e. right after the last commit or
	// open). Rollback truncates the active segment back to this offset.
	segmentStartOffset int64
	segmentStartID     uint64

	// pending records, in order, every mutation since the last commit so
	// Rollback can unwind the in-memory index/shadow/compact state
	// exactly, not just the on-disk log.
	pending []pendingOp
}

// ListResult is one entry returned by List/Scan.
type ListResult struct {
	Key  index.Key
	Size uint32
}
