package errors

import stdErrors "errors"

// CheckerError is a specialized error type for the offline verify/repair
// pass. It embeds baseError and adds the context an operator needs to
// understand which object or segment a check finding concerns.
type CheckerError struct {
	*baseError

	segmentID uint64 // Segment involved in the finding, if any.
	key       string // Hex-encoded key involved in the finding, if any.
	repaired  bool   // Whether repair mode already corrected this finding.
}

// NewCheckerError creates a new checker-specific error.
func NewCheckerError(err error, code ErrorCode, msg string) *CheckerError {
	return &CheckerError{baseError: NewBaseError(err, code, msg)}
}

// WithDetail adds contextual information while maintaining the CheckerError type.
func (ce *CheckerError) WithDetail(key string, value any) *CheckerError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithSegmentID records which segment the finding concerns.
func (ce *CheckerError) WithSegmentID(id uint64) *CheckerError {
	ce.segmentID = id
	return ce
}

// WithKey records which key the finding concerns.
func (ce *CheckerError) WithKey(key string) *CheckerError {
	ce.key = key
	return ce
}

// WithRepaired marks whether repair mode already corrected this finding.
func (ce *CheckerError) WithRepaired(repaired bool) *CheckerError {
	ce.repaired = repaired
	return ce
}

// SegmentID returns the segment the finding concerns.
func (ce *CheckerError) SegmentID() uint64 { return ce.segmentID }

// Key returns the key the finding concerns.
func (ce *CheckerError) Key() string { return ce.key }

// Repaired reports whether repair mode already corrected this finding.
func (ce *CheckerError) Repaired() bool { return ce.repaired }

// IsCheckerError checks if the given error is a CheckerError or contains
// one in its error chain.
func IsCheckerError(err error) bool {
	var ce *CheckerError
	return stdErrors.As(err, &ce)
}

// AsCheckerError extracts CheckerError context from an error chain.
func AsCheckerError(err error) (*CheckerError, bool) {
	var ce *CheckerError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
