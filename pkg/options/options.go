// Package options provides data structures and functions for configuring
// the Ignite repository engine. It defines the parameters that control
// segment rotation and bucketing, compaction behavior, free-space and quota
// preflight, and locking defaults.
package options

import (
	"strings"
	"time"
)

// Defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Defines the soft size target a segment can grow to before rotation.
	// When an append would push the active segment past this size, a new
	// segment is created instead.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 512MB
	Size uint64 `json:"maxSegmentSize"`

	// Specifies the subdirectory (relative to DataDir) under which the
	// bucketed data/<N>/<segment> tree is stored.
	//
	// Default: "data"
	Directory string `json:"directory"`

	// Number of segment files grouped per bucket directory. Segment id s
	// lives in data/<s / SegmentsPerDir>/<s>.
	//
	// Default: 1000
	SegmentsPerDir uint64 `json:"segmentsPerDir"`
}

// Defines the configuration parameters for the Ignite repository engine.
// It provides control over storage, compaction, free space and locking.
type Options struct {
	// Specifies the base path where the repository lives.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// Defines how often an external caller is expected to trigger
	// compaction via commit(). The engine itself never schedules
	// compaction on a timer; this only documents the recommended cadence
	// for a driving CLI/cron collaborator.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// Fraction of a segment's bytes that must be known-obsolete before the
	// segment becomes eligible for compaction. Ignored when AppendOnly.
	//
	// Default: 0.1
	CompactThreshold float64 `json:"compactThreshold"`

	// Upper bound, in bytes, on a single object payload. Puts exceeding
	// this are rejected with a validation error (ErrorCodeInvalidInput)
	// before anything is appended to the log.
	//
	// Default: 512MB
	MaxDataSize uint64 `json:"maxDataSize"`

	// When true, commit() never compacts segments and destroy() is
	// refused. Intended for repositories that must only ever grow.
	//
	// Default: false
	AppendOnly bool `json:"appendOnly"`

	// Extra headroom, in bytes, that must remain free on the filesystem
	// after accounting for worst-case compaction scratch space and the
	// new index/hints snapshot, or commit aborts with
	// InsufficientFreeSpace.
	//
	// Default: 0
	AdditionalFreeSpace uint64 `json:"additionalFreeSpace"`

	// Optional cap, in bytes, on total live data size. Zero means
	// unenforced. See DESIGN.md for the open question this resolves.
	//
	// Default: 0 (disabled)
	StorageQuota uint64 `json:"storageQuota"`

	// Whether Open() acquires the lock in exclusive mode by default.
	// Replay always upgrades to exclusive regardless of this setting.
	//
	// Default: false
	Exclusive bool `json:"exclusive"`

	// How long Open() waits to acquire the repository lock before giving
	// up with LockFailed. Zero means try once and fail fast.
	//
	// Default: 1s
	LockWait time.Duration `json:"lockWait"`

	// Configures segment management including size limits and bucketing.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// OptionFunc is a function type that modifies the Ignite system's configuration.
type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		*o = opts
	}
}

// Sets the primary data directory for Ignite.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// Sets the interval at which an external caller is expected to commit with
// compaction enabled.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

// Sets the sparse-byte-fraction threshold at which a segment becomes
// eligible for compaction.
func WithCompactThreshold(threshold float64) OptionFunc {
	return func(o *Options) {
		if threshold > 0 && threshold <= 1 {
			o.CompactThreshold = threshold
		}
	}
}

// Sets the maximum size of a single object payload.
func WithMaxDataSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxDataSize = size
		}
	}
}

// Enables or disables append-only mode. In append-only mode commit() never
// compacts and destroy() is refused.
func WithAppendOnly(appendOnly bool) OptionFunc {
	return func(o *Options) {
		o.AppendOnly = appendOnly
	}
}

// Sets the free-space headroom required at commit time.
func WithAdditionalFreeSpace(bytes uint64) OptionFunc {
	return func(o *Options) {
		o.AdditionalFreeSpace = bytes
	}
}

// Sets the storage quota. Zero disables enforcement.
func WithStorageQuota(bytes uint64) OptionFunc {
	return func(o *Options) {
		o.StorageQuota = bytes
	}
}

// Requests the repository lock be acquired in exclusive mode at Open().
func WithExclusive(exclusive bool) OptionFunc {
	return func(o *Options) {
		o.Exclusive = exclusive
	}
}

// Sets how long Open() waits to acquire the repository lock.
func WithLockWait(d time.Duration) OptionFunc {
	return func(o *Options) {
		if d >= 0 {
			o.LockWait = d
		}
	}
}

// Sets the directory specifically for storing segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// Sets the number of segment files grouped per bucket directory.
func WithSegmentsPerDir(n uint64) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.SegmentOptions.SegmentsPerDir = n
		}
	}
}

// Sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}
