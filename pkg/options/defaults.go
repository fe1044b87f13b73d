package options

import "time"

const (
	// Specifies the default base directory where IgniteDB will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/ignitedb"

	// Defines the default cadence at which an external caller is expected to
	// commit with compaction enabled.
	DefaultCompactInterval = time.Hour * 5

	// Default fraction of obsolete bytes that makes a segment eligible for
	// compaction.
	DefaultCompactThreshold = 0.1

	// Default cap on a single object payload (512MB).
	DefaultMaxDataSize uint64 = 512 * 1024 * 1024

	// Default free-space headroom required at commit time (none).
	DefaultAdditionalFreeSpace uint64 = 0

	// Default storage quota; zero means unenforced.
	DefaultStorageQuota uint64 = 0

	// Default lock wait before giving up with LockFailed.
	DefaultLockWait = time.Second

	// Represents the minimum allowed size for a segment file in bytes (512MB).
	MinSegmentSize uint64 = 512 * 1024 * 1024

	// Represents the maximum allowed size for a segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// Specifies the default target size for a new segment file in bytes (1GB).
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// Specifies the default subdirectory within the main data directory
	// where segment files will be stored.
	DefaultSegmentDirectory = "data"

	// Default number of segments grouped under one bucket directory.
	DefaultSegmentsPerDir uint64 = 1000
)

// Holds the default configuration settings for an IgniteDB instance.
var defaultOptions = Options{
	DataDir:             DefaultDataDir,
	CompactInterval:     DefaultCompactInterval,
	CompactThreshold:    DefaultCompactThreshold,
	MaxDataSize:         DefaultMaxDataSize,
	AdditionalFreeSpace: DefaultAdditionalFreeSpace,
	StorageQuota:        DefaultStorageQuota,
	LockWait:            DefaultLockWait,
	SegmentOptions: &segmentOptions{
		Size:           DefaultSegmentSize,
		Directory:      DefaultSegmentDirectory,
		SegmentsPerDir: DefaultSegmentsPerDir,
	},
}

// NewDefaultOptions returns a fresh copy of the default configuration. The
// embedded *segmentOptions is copied too so callers can't mutate shared state.
func NewDefaultOptions() Options {
	opts := defaultOptions
	segCopy := *defaultOptions.SegmentOptions
	opts.SegmentOptions = &segCopy
	return opts
}
