package errors

// ExitCode is the stable, numeric identifier surfaced to an external driver
// (CLI, RPC transport) for a given error condition. These values are part of
// the engine's contract with its callers and must never be renumbered.
type ExitCode int

const (
	ExitCodeAlreadyExists           ExitCode = 10
	ExitCodeCheckNeeded             ExitCode = 12
	ExitCodeDoesNotExist            ExitCode = 13
	ExitCodeInsufficientFreeSpace   ExitCode = 14
	ExitCodeInvalidRepository       ExitCode = 15
	ExitCodeInvalidRepositoryConfig ExitCode = 16
	ExitCodeObjectNotFound          ExitCode = 17
	ExitCodeParentPathDoesNotExist  ExitCode = 18
	ExitCodePathAlreadyExists       ExitCode = 19
	ExitCodeStorageQuotaExceeded    ExitCode = 20
	ExitCodePathPermissionDenied    ExitCode = 21
)

// exitCodeByErrorCode maps the internal error-code taxonomy to the stable
// exit codes clients depend on. Error codes with no entry here are internal
// failures that don't have a dedicated, stable exit code.
var exitCodeByErrorCode = map[ErrorCode]ExitCode{
	ErrorCodeAlreadyExists:           ExitCodeAlreadyExists,
	ErrorCodeCheckNeeded:             ExitCodeCheckNeeded,
	ErrorCodeDoesNotExist:            ExitCodeDoesNotExist,
	ErrorCodeInsufficientFreeSpace:   ExitCodeInsufficientFreeSpace,
	ErrorCodeInvalidRepository:       ExitCodeInvalidRepository,
	ErrorCodeInvalidRepositoryConfig: ExitCodeInvalidRepositoryConfig,
	ErrorCodeObjectNotFound:          ExitCodeObjectNotFound,
	ErrorCodeParentPathDoesNotExist:  ExitCodeParentPathDoesNotExist,
	ErrorCodePathAlreadyExists:       ExitCodePathAlreadyExists,
	ErrorCodeStorageQuotaExceeded:    ExitCodeStorageQuotaExceeded,
	ErrorCodePermissionDenied:        ExitCodePathPermissionDenied,
}

// ExitCodeFor returns the stable exit code for an error produced by this
// package, and false if the error carries no dedicated exit code (in which
// case the caller should treat it as an unclassified internal failure).
func ExitCodeFor(err error) (ExitCode, bool) {
	code := GetErrorCode(err)
	ec, ok := exitCodeByErrorCode[code]
	return ec, ok
}
