package engine

import (
	"sort"

	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/errors"
)

// requireOpenLocked returns an error unless the engine holds a segment/index
// pair to operate on. Must be called with e.mu held.
func (e *Engine) requireOpenLocked() error {
	if e.state == StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeEngineClosed, "repository is not open").WithPath(e.dir)
	}
	return nil
}

// ensureActiveSegmentLocked makes sure the current transaction has an
// active write segment, opening (and thereby creating, with its magic
// header) e.segmentStartID on first use since the last commit/open. A
// segment the Manager has rotated to during this transaction (an id above
// e.segmentStartID) stays the active one. Must be called with e.mu held.
func (e *Engine) ensureActiveSegmentLocked() error {
	if e.segMgr.ActiveID() >= e.segmentStartID && e.segMgr.ActiveID() != 0 {
		return nil
	}
	if err := e.segMgr.OpenForAppend(e.segmentStartID); err != nil {
		return err
	}
	e.segmentStartOffset = e.segMgr.ActiveSize()
	return nil
}

// Put appends a PUT entry for key/payload, updates the index, and records
// the key's previous location (if any) in the shadow index and compact
// table. Rejects payloads larger than MaxDataSize without touching the log.
func (e *Engine) Put(key [32]byte, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return err
	}
	if uint64(len(payload)) > e.opts.MaxDataSize {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "payload exceeds maximum object size").
			WithField("payload").WithRule("max_size").
			WithProvided(len(payload)).WithExpected(e.opts.MaxDataSize)
	}

	if err := e.ensureActiveSegmentLocked(); err != nil {
		return err
	}

	segID, offset, size, err := e.segMgr.WritePut(key, payload)
	if err != nil {
		return err
	}

	k := index.Key(key)
	prev, hadPrev := e.idx.Put(k, index.RecordPointer{Segment: segID, Offset: offset, Size: size})

	op := pendingOp{key: k, hadPrev: hadPrev, prev: prev}
	if hadPrev {
		e.compact.Add(prev.Segment, uint64(prev.Size))
		e.shadow.Append(k, prev.Segment)
		op.shadowAdded = true
	}
	e.pending = append(e.pending, op)

	e.state = StateOpenDirty
	return nil
}

// Delete appends a DELETE tombstone for key, removing it from the index
// and recording its prior location in the shadow index and compact table.
// Deleting an absent key is an ObjectNotFound error and writes nothing.
func (e *Engine) Delete(key [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return err
	}

	k := index.Key(key)
	prev, hadPrev := e.idx.Get(k)
	if !hadPrev {
		return errors.NewObjectNotFoundError(e.dir, keyHex(k))
	}

	if err := e.ensureActiveSegmentLocked(); err != nil {
		return err
	}

	segID, _, size, err := e.segMgr.WriteDelete(key)
	if err != nil {
		return err
	}

	e.idx.Delete(k)
	e.compact.Add(prev.Segment, uint64(prev.Size))
	e.shadow.Append(k, prev.Segment)
	e.compact.Add(segID, uint64(size)) // self-accounting: the DELETE itself becomes obsolete once discharged.

	e.pending = append(e.pending, pendingOp{
		key: k, hadPrev: true, prev: prev, wasDelete: true, shadowAdded: true,
		selfSegment: segID, selfBytes: uint64(size),
	})

	e.state = StateOpenDirty
	return nil
}

// Get returns the payload for key, or ObjectNotFound if it has no live
// entry in the index.
func (e *Engine) Get(key [32]byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return nil, err
	}

	k := index.Key(key)
	rp, ok := e.idx.Get(k)
	if !ok {
		return nil, errors.NewObjectNotFoundError(e.dir, keyHex(k))
	}

	entry, err := e.segMgr.ReadAt(rp.Segment, rp.Offset)
	if err != nil {
		return nil, err
	}
	if entry.Tag != segment.TagPut {
		return nil, errors.NewObjectNotFoundError(e.dir, keyHex(k))
	}
	return entry.Payload, nil
}

// List returns up to limit keys in ascending order, strictly after marker
// (from the first key if marker is nil); limit <= 0 means unlimited. The order is stable across calls on an
// unchanged repository because it is derived by sorting a fresh snapshot
// of the index every time, not by any positional cursor into the log.
func (e *Engine) List(limit int, marker *[32]byte) ([]ListResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return nil, err
	}

	keys := e.idx.Keys()
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	start := 0
	if marker != nil {
		mk := index.Key(*marker)
		start = sort.Search(len(keys), func(i int) bool { return lessKey(mk, keys[i]) })
	}

	out := make([]ListResult, 0, max(limit, 0))
	for i := start; i < len(keys) && (limit <= 0 || len(out) < limit); i++ {
		rp, ok := e.idx.Get(keys[i])
		if !ok {
			continue
		}
		out = append(out, ListResult{Key: keys[i], Size: rp.Size})
	}
	return out, nil
}

// Scan is List's streaming counterpart: fn is called for every live key in
// ascending order (optionally resuming after a previously returned state
// key), stopping early if fn returns false.
func (e *Engine) Scan(limit int, state *[32]byte, fn func(ListResult) bool) error {
	results, err := e.List(limit, state)
	if err != nil {
		return err
	}
	for _, r := range results {
		if !fn(r) {
			return nil
		}
	}
	return nil
}

func lessKey(a, b index.Key) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func keyHex(k index.Key) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, len(k)*2)
	for i, b := range k {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0f]
	}
	return string(buf)
}
