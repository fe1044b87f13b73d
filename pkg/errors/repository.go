package errors

import stdErrors "errors"

// RepositoryError is a specialized error type for transaction-manager level
// failures: lock acquisition/upgrade, commit/rollback protocol violations,
// free-space preflight, and the open/recovery state machine. It embeds
// baseError to inherit chaining, codes and structured details, then adds the
// context an operator needs to understand which transaction step failed.
type RepositoryError struct {
	*baseError

	path        string // Repository path the operation was running against.
	transaction uint64 // Transaction id (latest committed segment) in effect, if any.
	step        string // Named commit/recovery step active when the error occurred.
}

// NewRepositoryError creates a new repository-specific error.
func NewRepositoryError(err error, code ErrorCode, msg string) *RepositoryError {
	return &RepositoryError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the RepositoryError type.
func (re *RepositoryError) WithMessage(msg string) *RepositoryError {
	re.baseError.WithMessage(msg)
	return re
}

// WithDetail adds contextual information while maintaining the RepositoryError type.
func (re *RepositoryError) WithDetail(key string, value any) *RepositoryError {
	re.baseError.WithDetail(key, value)
	return re
}

// WithPath records which repository the error concerns.
func (re *RepositoryError) WithPath(path string) *RepositoryError {
	re.path = path
	return re
}

// WithTransaction records which transaction id was in effect.
func (re *RepositoryError) WithTransaction(tid uint64) *RepositoryError {
	re.transaction = tid
	return re
}

// WithStep records which named step of the commit or recovery procedure was
// active when the error occurred (e.g. "fsync-commit", "compact", "write-index").
func (re *RepositoryError) WithStep(step string) *RepositoryError {
	re.step = step
	return re
}

// Path returns the repository path the error concerns.
func (re *RepositoryError) Path() string { return re.path }

// Transaction returns the transaction id in effect when the error occurred.
func (re *RepositoryError) Transaction() uint64 { return re.transaction }

// Step returns the named step active when the error occurred.
func (re *RepositoryError) Step() string { return re.step }

// IsRepositoryError checks if the given error is a RepositoryError or
// contains one in its error chain.
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return stdErrors.As(err, &re)
}

// AsRepositoryError extracts RepositoryError context from an error chain.
func AsRepositoryError(err error) (*RepositoryError, bool) {
	var re *RepositoryError
	if stdErrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Helper constructors for the named repository error conditions. Each
// carries the ErrorCode that maps to its stable exit code.

// NewObjectNotFoundError creates the error returned when a key has no live
// index entry - both get() and delete() on an absent key raise this.
func NewObjectNotFoundError(path, key string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeObjectNotFound, "object not found in repository").
		WithPath(path).
		WithDetail("key", key)
}

// NewLockFailedError creates the error returned when a lock cannot be
// acquired or upgraded.
func NewLockFailedError(err error, path string) *RepositoryError {
	return NewRepositoryError(err, ErrorCodeLockFailed, "failed to acquire or upgrade repository lock").
		WithPath(path)
}

// NewInsufficientFreeSpaceError creates the commit-time preflight error.
func NewInsufficientFreeSpaceError(path string, required, available uint64) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeInsufficientFreeSpace, "insufficient free space to complete transaction").
		WithPath(path).
		WithStep("free-space-preflight").
		WithDetail("required", required).
		WithDetail("available", available)
}

// NewAlreadyExistsError creates the error returned by create() against a
// path that already holds a repository.
func NewAlreadyExistsError(path string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeAlreadyExists, "a repository already exists at this path").
		WithPath(path)
}

// NewDoesNotExistError creates the error returned by open() against a path
// with no repository.
func NewDoesNotExistError(path string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeDoesNotExist, "repository does not exist").
		WithPath(path)
}

// NewInvalidRepositoryError creates the error returned when the README
// identity file is missing or does not match the expected text.
func NewInvalidRepositoryError(path string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeInvalidRepository, "not a valid repository, check repo config").
		WithPath(path)
}

// NewInvalidRepositoryConfigError creates the error returned when the
// repository version is unsupported or the config file is malformed.
func NewInvalidRepositoryConfigError(path, detail string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeInvalidRepositoryConfig, "repository does not have a valid configuration").
		WithPath(path).
		WithDetail("issue", detail)
}

// NewCheckNeededError creates the error returned when replay or a read
// discovers an inconsistency that only check(repair=true) can resolve.
func NewCheckNeededError(path string) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeCheckNeeded, "inconsistency detected, run check with repair").
		WithPath(path)
}

// NewStorageQuotaExceededError creates the error returned when a pending
// transaction would exceed the configured storage quota.
func NewStorageQuotaExceededError(path string, quota, used uint64) *RepositoryError {
	return NewRepositoryError(nil, ErrorCodeStorageQuotaExceeded, "storage quota exceeded").
		WithPath(path).
		WithDetail("quota", quota).
		WithDetail("used", used)
}
