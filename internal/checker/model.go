// Package checker implements the offline verify/repair pass: it
// walks every committed segment, recomputes entry CRCs and framing, and
// cross-checks the index against what the log actually contains. Verify
// mode only reports findings; repair mode corrects the in-memory index,
// compact table and shadow index in place and deletes uncommitted trailing
// segments. It writes no snapshot itself: the engine's next commit does.
package checker

import "time"

// Finding is one inconsistency discovered during a check pass.
type Finding struct {
	Kind      FindingKind
	SegmentID uint64
	Key       string // hex-encoded, when the finding concerns one key
	Detail    string
	Repaired  bool
}

// FindingKind categorizes a Finding the way repair policy branches on it.
type FindingKind string

const (
	// FindingCorruptEntry: a CRC mismatch or framing error partway through
	// an otherwise-committed segment.
	FindingCorruptEntry FindingKind = "corrupt_entry"
	// FindingMissingSegment: the index points at a segment id with no file
	// on disk.
	FindingMissingSegment FindingKind = "missing_segment"
	// FindingTornCommit: a trailing segment above the last well-formed
	// commit has no well-formed COMMIT of its own. One finding is reported
	// per such segment, not just the highest-numbered one.
	FindingTornCommit FindingKind = "torn_commit"
	// FindingStaleIndex: the index snapshot's tid exceeds the highest
	// committed segment actually on disk.
	FindingStaleIndex FindingKind = "stale_index"
)

// Report is the result of one Check call.
type Report struct {
	Findings    []Finding
	Repaired    bool // whether this report was produced in repair mode
	SegmentsOK  int
	LastChecked uint64 // highest segment id the walk reached before stopping
	TimedOut    bool   // the max-duration budget was exhausted before reaching the end
}

// HasFindings reports whether anything was wrong.
func (r *Report) HasFindings() bool { return len(r.Findings) > 0 }

// Options configures one Check call.
type Options struct {
	Repair      bool
	MaxDuration time.Duration // zero means unbounded
}
