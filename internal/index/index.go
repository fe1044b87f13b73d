package index

import (
	stdErrors "errors"

	"github.com/iamNilotpal/ignite/pkg/errors"
)

var (
	ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")
)

// New creates an empty Index ready for Put/Get/Delete, or for being
// populated by a snapshot load / replay.
func New(config *Config) (*Index, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:     config.Logger,
		dataDir: config.DataDir,
		m:       make(map[Key]RecordPointer, 2048),
	}, nil
}

// Get returns the current location of key, or ok=false if it has no live
// entry.
func (idx *Index) Get(key Key) (RecordPointer, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rp, ok := idx.m[key]
	return rp, ok
}

// Put records key's new location, returning its previous one if any. The
// caller (the transaction manager) is responsible for using the returned
// previous pointer to update the compact table and shadow index.
func (idx *Index) Put(key Key, rp RecordPointer) (prev RecordPointer, hadPrev bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, hadPrev = idx.m[key]
	idx.m[key] = rp
	return prev, hadPrev
}

// Delete removes key from the index, returning its last location if it had
// one.
func (idx *Index) Delete(key Key) (prev RecordPointer, hadPrev bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	prev, hadPrev = idx.m[key]
	delete(idx.m, key)
	return prev, hadPrev
}

// Len reports the number of live keys.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.m)
}

// ForEach calls fn for every live key in an unspecified order, stopping
// early if fn returns false. fn must not mutate the index.
func (idx *Index) ForEach(fn func(key Key, rp RecordPointer) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for k, rp := range idx.m {
		if !fn(k, rp) {
			return
		}
	}
}

// Keys returns a snapshot slice of every live key. Used by list()/scan()
// callers that need a stable ordering; the transaction manager sorts this
// before returning it to a caller.
func (idx *Index) Keys() []Key {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	keys := make([]Key, 0, len(idx.m))
	for k := range idx.m {
		keys = append(keys, k)
	}
	return keys
}

// Reset clears every entry, used when a fresh replay is about to
// repopulate the index from scratch.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	clear(idx.m)
}

// Close releases the index's memory. The index must not be used again
// afterward.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("closing index")

	idx.mu.Lock()
	defer idx.mu.Unlock()
	clear(idx.m)
	idx.m = nil

	return nil
}
