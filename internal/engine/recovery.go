package engine

import (
	"context"
	"path/filepath"

	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/errors"
)

// recover locates the latest committed segment, discards any uncommitted
// trailing segments, and loads or replays the index/hints. Must be called
// with e.mu held and the lock already acquired.
func (e *Engine) recover(ctx context.Context, cfg repoFileConfig) error {
	ids, err := e.segMgr.ListSegments()
	if err != nil {
		return err
	}

	tid, err := e.discardUncommittedTail(ids)
	if err != nil {
		return err
	}

	if tid == 0 {
		e.idx, err = index.New(&index.Config{DataDir: e.dir, Logger: e.log})
		if err != nil {
			return err
		}
		e.compact = hints.NewCompactTable()
		e.shadow = hints.NewShadowIndex()
		e.segmentStartID = 1
		e.segmentStartOffset = 0
		e.pending = nil
		return nil
	}

	if err := e.loadOrReplay(ctx, cfg, tid); err != nil {
		return err
	}

	e.cleanupSupersededSnapshots(tid)

	// tid here is discardUncommittedTail's highest-committed-id-on-disk, not
	// a value computed from a previous Commit's in-memory bookkeeping - it
	// already accounts for any segments a prior commit's compaction pass
	// created above the segment WriteCommit originally sealed, so tid+1 is
	// always one past every id actually on disk.
	e.segmentStartID = tid + 1
	e.segmentStartOffset = 0
	e.pending = nil
	return nil
}

// discardUncommittedTail deletes every segment that is not a prefix of a
// well-formed committed log (i.e. every segment above the highest
// committed one), and returns that highest committed id, or 0 if none of
// the segments on disk were ever committed.
func (e *Engine) discardUncommittedTail(ids []uint64) (uint64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var tid uint64
	for i := len(ids) - 1; i >= 0; i-- {
		s := ids[i]
		committed, err := e.segMgr.IsCommitted(s)
		if err != nil {
			return 0, err
		}
		if committed {
			tid = s
			break
		}
	}

	for _, id := range ids {
		if id > tid {
			e.log.Infow("discarding uncommitted trailing segment", "segmentID", id)
			if err := e.segMgr.DeleteSegment(id); err != nil {
				return 0, err
			}
		}
	}

	return tid, nil
}

// loadOrReplay tries the index.<tid>/hints.<tid> snapshot pair first,
// falling back to a full log replay - which requires the exclusive lock -
// whenever the snapshot is missing, stale, or fails its signature check.
func (e *Engine) loadOrReplay(ctx context.Context, cfg repoFileConfig, tid uint64) error {
	idxPath := filepath.Join(e.dir, indexFileName(tid))
	hintsPath := filepath.Join(e.dir, hintsFileName(tid))

	idx, err := index.ReadSnapshot(idxPath, cfg.ID, &index.Config{DataDir: e.dir, Logger: e.log})
	if err != nil {
		e.log.Infow("index snapshot unusable, replay required", "tid", tid, "reason", err)
		return e.replay(ctx, tid)
	}

	ct, si, err := hints.ReadSnapshot(hintsPath)
	if err != nil {
		e.log.Infow("hints snapshot unusable, rebuilding from segments", "tid", tid, "reason", err)
		ids := make([]uint64, 0, tid)
		for s := uint64(1); s <= tid; s++ {
			if e.segMgr.SegmentExists(s) {
				ids = append(ids, s)
			}
		}
		ct, err = hints.RebuildSparse(e.segMgr, idx, ids)
		if err != nil {
			return errors.NewRepositoryError(err, errors.ErrorCodeCheckNeeded, "failed to rebuild compaction hints").WithPath(e.dir)
		}
		// The shadow index cannot be derived from the loaded index; replaying
		// the segments into a scratch index recovers it.
		si = hints.NewShadowIndex()
		scratch, err := index.New(&index.Config{DataDir: e.dir, Logger: e.log})
		if err != nil {
			return err
		}
		scratchCT := hints.NewCompactTable()
		for _, s := range ids {
			if err := replaySegment(e.segMgr, scratch, scratchCT, si, s); err != nil {
				return errors.NewRepositoryError(err, errors.ErrorCodeCheckNeeded, "failed to rebuild shadow index").WithPath(e.dir)
			}
		}
	}

	e.idx = idx
	e.compact = ct
	e.shadow = si
	return nil
}

// replay rebuilds the index, compact table, and shadow index from scratch
// by walking every committed segment from 1 to tid in order. Replay always
// requires the exclusive lock; a caller holding only shared must upgrade
// first, and upgrade failure is a hard LockFailed error.
func (e *Engine) replay(ctx context.Context, tid uint64) error {
	if err := e.lockMgr.Upgrade(ctx); err != nil {
		return err
	}

	idx, err := index.New(&index.Config{DataDir: e.dir, Logger: e.log})
	if err != nil {
		return err
	}
	ct := hints.NewCompactTable()
	si := hints.NewShadowIndex()

	for s := uint64(1); s <= tid; s++ {
		if !e.segMgr.SegmentExists(s) {
			continue
		}
		if err := replaySegment(e.segMgr, idx, ct, si, s); err != nil {
			return errors.NewRepositoryError(err, errors.ErrorCodeCheckNeeded, "replay failed").
				WithPath(e.dir).WithTransaction(tid).WithStep("replay")
		}
	}

	e.idx = idx
	e.compact = ct
	e.shadow = si
	e.log.Infow("replay complete", "tid", tid)
	return nil
}

// replaySegment applies every PUT/DELETE in segmentID to idx/ct/si, exactly
// mirroring the bookkeeping Put/Delete perform live (see txn.go), so replay
// produces an index identical to one built incrementally.
func replaySegment(segMgr *segment.Manager, idx *index.Index, ct *hints.CompactTable, si *hints.ShadowIndex, segmentID uint64) error {
	it, err := segMgr.IterEntries(segmentID)
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		e, ok := it.Next()
		if !ok {
			break
		}

		key := index.Key(e.Key)
		switch e.Tag {
		case segment.TagPut:
			prev, hadPrev := idx.Put(key, index.RecordPointer{Segment: segmentID, Offset: e.Offset, Size: e.Size})
			if hadPrev {
				ct.Add(prev.Segment, uint64(prev.Size))
				si.Append(key, prev.Segment)
			}
		case segment.TagDelete:
			prev, hadPrev := idx.Delete(key)
			if hadPrev {
				ct.Add(prev.Segment, uint64(prev.Size))
				si.Append(key, prev.Segment)
			}
			ct.Add(segmentID, uint64(e.Size))
		case segment.TagCommit:
			// Terminator only; no index effect.
		}
	}

	return it.Err()
}

func indexFileName(tid uint64) string { return "index." + uitoa(tid) }
func hintsFileName(tid uint64) string { return "hints." + uitoa(tid) }

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// cleanupSupersededSnapshots removes every index.*/hints.* file that isn't
// for the current tid - harmless leftovers from a commit that crashed after
// writing fresh snapshots but before deleting the superseded ones.
func (e *Engine) cleanupSupersededSnapshots(tid uint64) {
	keepIndex := indexFileName(tid)
	keepSig := keepIndex + ".signature"
	keepHints := hintsFileName(tid)

	removeAllExcept(filepath.Join(e.dir, "index.*"), keepIndex, keepSig)
	removeAllExcept(filepath.Join(e.dir, "hints.*"), keepHints)
}

func removeAllExcept(pattern string, keep ...string) {
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		base := filepath.Base(m)
		keepIt := false
		for _, k := range keep {
			if base == k {
				keepIt = true
				break
			}
		}
		if !keepIt {
			removeGlob(m)
		}
	}
}
