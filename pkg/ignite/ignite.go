// Package ignite provides a content-addressed, crash-safe key/value
// storage engine built around an append-only segment log, inspired by
// Borg's repository store. It combines an in-memory index (key ->
// segment/offset) with a segment log on disk, committing mutations in
// batches and periodically compacting segments once enough of their
// content has been superseded or deleted. It is designed for applications
// that need durable, deduplicating object storage with explicit
// transaction boundaries - backup tools, content-addressed blob stores,
// and similar write-once-many-read workloads.
package ignite

import (
	"context"
	"time"

	"github.com/iamNilotpal/ignite/internal/checker"
	"github.com/iamNilotpal/ignite/internal/engine"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/iamNilotpal/ignite/pkg/options"
)

// Key is a 32-byte content-addressed object identifier (e.g. a SHA-256
// digest of the payload it names).
type Key = [32]byte

// ListEntry is one row returned by List/Scan.
type ListEntry = engine.ListResult

// Report is the result of a Check call.
type Report = checker.Report

// Instance is the primary entry point for interacting with an Ignite
// repository. It wraps the transaction manager (internal/engine) and the
// configuration options applied to this particular repository.
type Instance struct {
	engine  *engine.Engine   // The underlying transaction manager handling read/write operations.
	options *options.Options // Configuration options applied to this repository.
}

// NewInstance constructs an Instance bound to the repository at
// options.DataDir. The returned Instance is not yet open - call Open or
// Create before any other method.
func NewInstance(service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(&engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Create initializes a brand-new, empty repository on disk and leaves it
// open, ready for Put/Delete/Commit.
func (i *Instance) Create(ctx context.Context) error {
	return i.engine.Create(ctx)
}

// Open opens an existing repository, replaying or loading its index as
// needed per the recovery procedure.
func (i *Instance) Open(ctx context.Context) error {
	return i.engine.Open(ctx)
}

// Put stores payload under key, appending a PUT entry to the current write
// segment. The mutation is only durable once Commit succeeds.
func (i *Instance) Put(key Key, payload []byte) error {
	return i.engine.Put(key, payload)
}

// Delete removes key, appending a DELETE tombstone. Returns ObjectNotFound
// if key has no live entry.
func (i *Instance) Delete(key Key) error {
	return i.engine.Delete(key)
}

// Get returns the payload stored under key, or ObjectNotFound.
func (i *Instance) Get(key Key) ([]byte, error) {
	return i.engine.Get(key)
}

// List returns up to limit keys in ascending order, strictly after marker
// (pass nil for the beginning of the keyspace). limit <= 0 means unlimited.
func (i *Instance) List(limit int, marker *Key) ([]ListEntry, error) {
	return i.engine.List(limit, marker)
}

// Scan streams every live key in ascending order to fn, stopping early if
// fn returns false.
func (i *Instance) Scan(limit int, marker *Key, fn func(ListEntry) bool) error {
	return i.engine.Scan(limit, marker, fn)
}

// Commit durably persists every mutation since the last commit: it fsyncs
// the write segment, runs the commit-time free-space preflight, compacts
// eligible segments (unless AppendOnly), and writes fresh index/hints
// snapshots. threshold overrides the configured compaction-eligibility
// fraction for this commit only; pass 0 to use the configured default.
func (i *Instance) Commit(ctx context.Context, threshold float64) error {
	return i.engine.Commit(ctx, threshold)
}

// Rollback discards every mutation since the last commit.
func (i *Instance) Rollback() error {
	return i.engine.Rollback()
}

// Check runs the offline verify/repair pass. repair=false only reports
// findings; repair=true corrects them and leaves a pending transaction the
// caller must Commit to persist. maxDuration bounds the walk; zero means
// unbounded.
func (i *Instance) Check(repair bool, maxDuration time.Duration) (*Report, error) {
	return i.engine.Check(repair, maxDuration)
}

// SaveKey persists blob as the repository's local encryption-key copy.
func (i *Instance) SaveKey(blob []byte) error {
	return i.engine.SaveKey(blob)
}

// LoadKey returns the repository's locally-stored encryption-key blob, or
// nil if none has been saved.
func (i *Instance) LoadKey() ([]byte, error) {
	return i.engine.LoadKey()
}

// Destroy unlinks every segment and metadata file. Refused on an
// append-only repository.
func (i *Instance) Destroy(ctx context.Context) error {
	return i.engine.Destroy(ctx)
}

// Close releases the repository lock and all in-memory state. Any pending
// mutation since the last commit is discarded.
func (i *Instance) Close() error {
	return i.engine.Close()
}
