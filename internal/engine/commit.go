package engine

import (
	"context"
	"path/filepath"

	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"golang.org/x/sys/unix"
)

// Commit executes the six-step commit protocol: fsync pending writes,
// append and fsync a COMMIT marker, preflight free space, compact eligible
// segments, write fresh index/hints snapshots, then delete the superseded
// ones. threshold overrides the configured compact-eligibility fraction for
// this commit only; pass a non-positive value to use options.CompactThreshold.
func (e *Engine) Commit(ctx context.Context, threshold float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeEngineClosed, "repository is not open").WithPath(e.dir)
	}
	if e.state == StateOpenClean {
		return nil // nothing pending; commit of a clean transaction is a no-op.
	}
	if threshold <= 0 {
		threshold = e.opts.CompactThreshold
	}

	// Step 1+2: fsync pending writes and append+fsync the COMMIT marker.
	// WriteCommit's single file.Sync() call flushes every byte written to
	// that file descriptor since it was opened, not just the COMMIT frame
	// itself, so one call satisfies both steps - there is no distinct
	// "flush" syscall separate from the fsync that follows it.
	tid, err := e.segMgr.WriteCommit()
	if err != nil {
		return errors.NewRepositoryError(err, errors.ErrorCodeIO, "failed to commit current segment").
			WithPath(e.dir).WithStep("fsync-commit")
	}

	// From here on, tid is durable: a crash looks like a successful commit
	// to tid with default (unrebuilt) hints, recoverable by replay. Every
	// subsequent step is best-effort cleanup/optimization, never something
	// that can resurrect old state if it's interrupted.
	//
	// The in-memory transaction is closed out here as well, so an error from
	// any later step is never followed by a Rollback/Close that unwinds the
	// index or truncates the segment that is already durable.
	e.pending = nil
	e.state = StateOpenClean
	e.segmentStartID = tid + 1
	e.segmentStartOffset = 0

	// Step 3: free-space preflight.
	if err := e.freeSpacePreflight(tid, threshold); err != nil {
		return err
	}

	// Step 4: compact eligible segments (skipped entirely in append-only
	// mode). Compaction can itself create new, already-committed segments
	// above tid (when a compacted segment carries live entries forward);
	// finalID tracks the highest segment id actually on disk once
	// compaction is done, so nothing downstream keeps treating tid as the
	// high-water mark when it no longer is.
	finalID := tid
	if !e.opts.AppendOnly {
		nextID, err := e.compactEligibleSegments(tid, threshold)
		if err != nil {
			if ids, lerr := e.segMgr.ListSegments(); lerr == nil && len(ids) > 0 && ids[len(ids)-1] >= e.segmentStartID {
				e.segmentStartID = ids[len(ids)-1] + 1
			}
			return errors.NewRepositoryError(err, errors.ErrorCodeInternal, "compaction failed during commit").
				WithPath(e.dir).WithTransaction(tid).WithStep("compact")
		}
		finalID = nextID - 1
	}
	e.segmentStartID = finalID + 1

	// Step 5: write fresh index.<finalID> and hints.<finalID>. Naming these
	// by finalID rather than tid keeps them matched to whatever
	// discardUncommittedTail will find as the highest committed segment on
	// the next open - which, after compaction, is finalID, not tid.
	idxPath := filepath.Join(e.dir, indexFileName(finalID))
	hintsPath := filepath.Join(e.dir, hintsFileName(finalID))

	if err := e.idx.WriteSnapshot(idxPath, e.repoID); err != nil {
		return errors.NewRepositoryError(err, errors.ErrorCodeIO, "failed to write index snapshot").
			WithPath(e.dir).WithTransaction(finalID).WithStep("write-index")
	}
	if err := hints.WriteSnapshot(hintsPath, e.compact, e.shadow); err != nil {
		return errors.NewRepositoryError(err, errors.ErrorCodeIO, "failed to write hints snapshot").
			WithPath(e.dir).WithTransaction(finalID).WithStep("write-hints")
	}

	// Step 6: delete superseded index.*/hints.* files.
	e.cleanupSupersededSnapshots(finalID)

	e.shadow.PruneAll(e.segMgr.SegmentExists)

	e.log.Infow("commit complete", "tid", tid, "finalID", finalID)
	return nil
}

// freeSpacePreflight computes an upper bound on compaction scratch space
// plus the new index/hints size and compares it against the filesystem's
// actual free space (minus options.AdditionalFreeSpace headroom). Aborting
// here leaves the commit point already reached (tid) intact - only steps
// 4-6 are skipped.
func (e *Engine) freeSpacePreflight(tid uint64, threshold float64) error {
	var scratch uint64
	ids, err := e.segMgr.ListSegments()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id >= tid {
			continue // the active/just-committed segment is never a compaction candidate yet.
		}
		size, err := e.segMgr.SegmentSize(id)
		if err != nil {
			continue
		}
		if e.compact.Eligible(id, uint64(size), threshold) {
			scratch += uint64(size) // worst case: every live byte of the segment is copied forward.
		}
	}

	const approxIndexEntrySize = 32 + 8 + 8 + 4
	required := scratch + uint64(e.idx.Len())*approxIndexEntrySize + 4096

	var stat unix.Statfs_t
	if err := unix.Statfs(e.segMgr.DataRoot(), &stat); err != nil {
		// A filesystem that can't report free space can't be preflighted;
		// treat this as non-fatal and let the later writes themselves
		// surface any real ENOSPC.
		return nil
	}
	available := stat.Bavail * uint64(stat.Bsize)

	if e.opts.StorageQuota > 0 {
		used := e.liveDataSize()
		if used > e.opts.StorageQuota {
			return errors.NewStorageQuotaExceededError(e.dir, e.opts.StorageQuota, used)
		}
	}

	if available < required+e.opts.AdditionalFreeSpace {
		return errors.NewInsufficientFreeSpaceError(e.dir, required+e.opts.AdditionalFreeSpace, available)
	}
	return nil
}

// liveDataSize sums the size of every currently-indexed object, the same
// accounting the storage-quota check enforces against, so quota and
// compact-table bookkeeping never diverge (DESIGN.md Open Question #3).
func (e *Engine) liveDataSize() uint64 {
	var total uint64
	e.idx.ForEach(func(_ index.Key, rp index.RecordPointer) bool {
		total += uint64(rp.Size)
		return true
	})
	return total
}

// compactEligibleSegments rewrites every sealed segment below tid whose
// obsolete-byte fraction has crossed threshold, dropping superseded PUTs
// and any DELETE whose shadowing obligation is fully discharged, then
// unlinks the original. It returns the next free segment id - one past the
// highest id now actually occupied on disk, whether that high-water mark
// came from tid itself (no compaction output survived) or from a fresh
// compacted segment created above tid - so callers never reuse an id a
// compacted segment just claimed.
func (e *Engine) compactEligibleSegments(tid uint64, threshold float64) (uint64, error) {
	ids, err := e.segMgr.ListSegments()
	if err != nil {
		return 0, err
	}

	nextID := tid + 1
	for _, id := range ids {
		if id >= nextID {
			nextID = id + 1
		}
	}

	for _, oldID := range ids {
		if oldID >= tid {
			continue
		}
		size, err := e.segMgr.SegmentSize(oldID)
		if err != nil {
			continue
		}
		if !e.compact.Eligible(oldID, uint64(size), threshold) {
			continue
		}

		if err := e.compactSegment(oldID, &nextID); err != nil {
			return 0, err
		}
	}
	return nextID, nil
}

func (e *Engine) compactSegment(oldID uint64, nextID *uint64) error {
	it, err := e.segMgr.IterEntries(oldID)
	if err != nil {
		return err
	}

	type keptPut struct {
		key     [32]byte
		payload []byte
	}
	var puts []keptPut
	var deletes [][32]byte

	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		switch entry.Tag {
		case segment.TagPut:
			rp, found := e.idx.Get(index.Key(entry.Key))
			if found && rp.Segment == oldID && rp.Offset == entry.Offset {
				puts = append(puts, keptPut{key: entry.Key, payload: entry.Payload})
			}
		case segment.TagDelete:
			if !e.shadow.CanDropDelete(index.Key(entry.Key), oldID, func(s uint64) bool {
				return !e.segMgr.SegmentExists(s)
			}) {
				deletes = append(deletes, entry.Key)
			}
		}
	}
	it.Close()
	if it.Err() != nil {
		return it.Err()
	}

	if len(puts) == 0 && len(deletes) == 0 {
		e.compact.Delete(oldID)
		return e.segMgr.DeleteSegment(oldID)
	}

	newID := *nextID
	*nextID++

	segPuts := make([]segment.CompactedPut, len(puts))
	for i, p := range puts {
		segPuts[i] = segment.CompactedPut{Key: p.key, Payload: p.payload}
	}
	segDeletes := make([]segment.CompactedDelete, len(deletes))
	for i, d := range deletes {
		segDeletes[i] = segment.CompactedDelete{Key: d}
	}

	locations, err := e.segMgr.WriteCompactedSegment(newID, segPuts, segDeletes)
	if err != nil {
		return err
	}

	for _, loc := range locations {
		e.idx.Put(index.Key(loc.Key), index.RecordPointer{Segment: newID, Offset: loc.Offset, Size: loc.Size})
	}

	e.compact.Delete(oldID)
	return e.segMgr.DeleteSegment(oldID)
}

// Rollback discards every mutation since the last commit: it undoes the
// in-memory index/shadow/compact changes in reverse order and truncates
// the write segment back to where the transaction began.
func (e *Engine) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeEngineClosed, "repository is not open").WithPath(e.dir)
	}
	e.rollbackLocked()
	return nil
}

func (e *Engine) rollbackLocked() {
	if e.state != StateOpenDirty {
		return
	}

	for i := len(e.pending) - 1; i >= 0; i-- {
		op := e.pending[i]
		if op.wasDelete {
			e.idx.Put(op.key, op.prev)
		} else if op.hadPrev {
			e.idx.Put(op.key, op.prev)
		} else {
			e.idx.Delete(op.key)
		}
		if op.shadowAdded {
			e.popShadow(op.key, op.prev.Segment)
		}
		// Undo the compact-table bookkeeping this op added, exactly
		// mirroring the index/shadow rollback above - otherwise a rolled
		// back Put/Delete leaves its segment looking more obsolete than it
		// actually is, permanently skewing Eligible().
		if op.hadPrev {
			e.compact.Subtract(op.prev.Segment, uint64(op.prev.Size))
		}
		if op.wasDelete {
			e.compact.Subtract(op.selfSegment, op.selfBytes)
		}
	}
	e.pending = nil

	active := e.segMgr.ActiveID()
	if active != 0 {
		for id := active; id > e.segmentStartID; id-- {
			e.segMgr.DeleteSegment(id)
			e.compact.Delete(id)
		}
		if err := e.segMgr.OpenForAppend(e.segmentStartID); err == nil {
			e.segMgr.TruncateActive(e.segmentStartOffset)
		}
	}

	e.state = StateOpenClean
}

// popShadow removes the most recently appended shadow entry for key
// pointing at segmentID, undoing exactly what Put/Delete added during this
// transaction without disturbing older shadow bookkeeping from prior
// commits.
func (e *Engine) popShadow(key index.Key, segmentID uint64) {
	segs := e.shadow.Get(key)
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == segmentID {
			segs = append(segs[:i], segs[i+1:]...)
			break
		}
	}
	e.shadow.Clear(key)
	for _, s := range segs {
		e.shadow.Append(key, s)
	}
}
