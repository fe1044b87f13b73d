package hints

import "github.com/iamNilotpal/ignite/internal/index"

// Append records that segmentID holds a superseded-or-deleted copy of key.
// Entries are appended in the order the copies are superseded or deleted.
func (si *ShadowIndex) Append(key index.Key, segmentID uint64) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.m[key] = append(si.m[key], segmentID)
}

// Get returns the ordered list of segments shadowing key. An empty (or
// absent) result means nothing outstanding for key.
func (si *ShadowIndex) Get(key index.Key) []uint64 {
	si.mu.RLock()
	defer si.mu.RUnlock()
	out := make([]uint64, len(si.m[key]))
	copy(out, si.m[key])
	return out
}

// Prune removes, from key's shadow list, every segment id for which exists
// reports false - i.e. segments no longer present on disk. If the
// resulting list is empty the key is dropped entirely, so an absent key
// and an empty list mean the same thing.
func (si *ShadowIndex) Prune(key index.Key, exists func(segmentID uint64) bool) {
	si.mu.Lock()
	defer si.mu.Unlock()
	segs := si.m[key]
	if len(segs) == 0 {
		return
	}
	kept := segs[:0]
	for _, s := range segs {
		if exists(s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(si.m, key)
		return
	}
	si.m[key] = kept
}

// PruneAll runs Prune across every key currently tracked.
func (si *ShadowIndex) PruneAll(exists func(segmentID uint64) bool) {
	si.mu.RLock()
	keys := make([]index.Key, 0, len(si.m))
	for k := range si.m {
		keys = append(keys, k)
	}
	si.mu.RUnlock()

	for _, k := range keys {
		si.Prune(k, exists)
	}
}

// CanDropDelete reports whether a DELETE(k) living in segment
// deleteSegment may be dropped during compaction: only if every segment
// older than deleteSegment in key's shadow list either no longer exists or
// has been compacted in a way that discharged its obligation (reported by
// discharged). Until that's true the DELETE must be copied forward.
func (si *ShadowIndex) CanDropDelete(key index.Key, deleteSegment uint64, discharged func(segmentID uint64) bool) bool {
	si.mu.RLock()
	segs := si.m[key]
	older := make([]uint64, 0, len(segs))
	for _, s := range segs {
		if s < deleteSegment {
			older = append(older, s)
		}
	}
	si.mu.RUnlock()

	for _, s := range older {
		if !discharged(s) {
			return false
		}
	}
	return true
}

// Clear discards key's shadow entries entirely - used on rollback, where
// any shadow entries added since the last commit must be undone.
func (si *ShadowIndex) Clear(key index.Key) {
	si.mu.Lock()
	defer si.mu.Unlock()
	delete(si.m, key)
}

// ForEach calls fn for every key with a nonempty shadow list, stopping
// early if fn returns false.
func (si *ShadowIndex) ForEach(fn func(key index.Key, segments []uint64) bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	for k, segs := range si.m {
		cp := make([]uint64, len(segs))
		copy(cp, segs)
		if !fn(k, cp) {
			return
		}
	}
}

// Reset clears every shadow entry.
func (si *ShadowIndex) Reset() {
	si.mu.Lock()
	defer si.mu.Unlock()
	clear(si.m)
}
