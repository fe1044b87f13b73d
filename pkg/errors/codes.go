package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing segment files, network operations when communicating with remote
	// systems, and device I/O when accessing storage hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems. These codes
// represent problems that are specific to the storage layer of your key-value
// store, particularly focusing on segment file management and data persistence.
const (
	// ErrorCodeSegmentCorrupted indicates that a segment file's data has been
	// damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a segment file. Headers contain critical metadata about the
	// segment's structure, so header read failures prevent access to the
	// entire segment and all data it contains.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading the actual data
	// content from segment files after successfully reading the header. This
	// represents a more localized failure compared to header problems, as the
	// segment structure is intact but specific data regions are inaccessible.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that the storage system's attempt to
	// recover from a previous failure was unsuccessful. This represents a
	// compound failure where both the original problem and the recovery
	// mechanism have failed, creating a more serious operational situation.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Index-specific error codes cover the failure modes of the in-memory
// key -> (segment, offset) mapping and its durable snapshot.
const (
	// ErrorCodeIndexKeyNotFound indicates a lookup for a key that has no
	// live entry in the index - the object is absent or was deleted.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexInvalidSegmentID indicates an index entry pointing at a
	// segment id that no longer exists on disk.
	ErrorCodeIndexInvalidSegmentID ErrorCode = "INDEX_INVALID_SEGMENT_ID"

	// ErrorCodeIndexTimestampExtraction indicates a segment or snapshot
	// filename that doesn't match the expected naming convention.
	ErrorCodeIndexTimestampExtraction ErrorCode = "INDEX_TIMESTAMP_EXTRACTION_FAILED"

	// ErrorCodeIndexCorrupted indicates the in-memory index data structure
	// itself is inconsistent, or a loaded snapshot failed validation.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"

	// ErrorCodeIndexSignatureMismatch indicates an index.<tid>.signature file
	// does not match the accompanying index.<tid> snapshot, or was written
	// for a different repository id. This is always a recoverable error:
	// it forces a replay rather than aborting the open.
	ErrorCodeIndexSignatureMismatch ErrorCode = "INDEX_SIGNATURE_MISMATCH"
)

// Repository-level error codes cover the transaction manager: locking,
// commit/rollback, free space preflight and the open/recovery state machine.
const (
	// ErrorCodeLockFailed indicates a shared/exclusive lock could not be
	// acquired or upgraded. An upgrade failure is never silently downgraded.
	ErrorCodeLockFailed ErrorCode = "LOCK_FAILED"

	// ErrorCodeAlreadyExists indicates create() was called against a path
	// that already holds a repository.
	ErrorCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrorCodeDoesNotExist indicates open() was called against a path with
	// no repository.
	ErrorCodeDoesNotExist ErrorCode = "DOES_NOT_EXIST"

	// ErrorCodeInvalidRepository indicates the README identity file is
	// missing or does not match the expected fixed text.
	ErrorCodeInvalidRepository ErrorCode = "INVALID_REPOSITORY"

	// ErrorCodeInvalidRepositoryConfig indicates the config file is missing
	// a required key or carries an unsupported repository version.
	ErrorCodeInvalidRepositoryConfig ErrorCode = "INVALID_REPOSITORY_CONFIG"

	// ErrorCodeObjectNotFound indicates a get/delete against a key absent
	// from the index.
	ErrorCodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"

	// ErrorCodeParentPathDoesNotExist indicates create() was asked to make a
	// repository under a parent directory that doesn't exist.
	ErrorCodeParentPathDoesNotExist ErrorCode = "PARENT_PATH_DOES_NOT_EXIST"

	// ErrorCodePathAlreadyExists indicates something non-repository already
	// occupies the target path.
	ErrorCodePathAlreadyExists ErrorCode = "PATH_ALREADY_EXISTS"

	// ErrorCodeInsufficientFreeSpace indicates the commit-time free-space
	// preflight determined there isn't enough headroom to safely compact
	// and rewrite the index/hints.
	ErrorCodeInsufficientFreeSpace ErrorCode = "INSUFFICIENT_FREE_SPACE"

	// ErrorCodeStorageQuotaExceeded indicates the configured storage quota
	// would be exceeded by the pending transaction.
	ErrorCodeStorageQuotaExceeded ErrorCode = "STORAGE_QUOTA_EXCEEDED"

	// ErrorCodeCheckNeeded indicates replay or commit found the repository
	// in an inconsistent state that only an explicit check(repair=true) can
	// resolve - for example a non-tail segment whose data is unreadable.
	ErrorCodeCheckNeeded ErrorCode = "CHECK_NEEDED"

	// ErrorCodeEngineClosed indicates an operation was attempted against a
	// repository that has already been closed.
	ErrorCodeEngineClosed ErrorCode = "ENGINE_CLOSED"

	// ErrorCodeInvalidState indicates an operation is not legal in the
	// engine's current lifecycle state (e.g. open() while already open).
	ErrorCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Checker-specific error codes cover verify/repair outcomes.
const (
	// ErrorCodeCheckFailed indicates the check pass itself failed (for
	// example a segment could not be read); findings are reported in the
	// check report, not through this code.
	ErrorCodeCheckFailed ErrorCode = "CHECK_FAILED"

	// ErrorCodeRepairFailed indicates repair mode could not bring the
	// repository back to a consistent state.
	ErrorCodeRepairFailed ErrorCode = "REPAIR_FAILED"
)
