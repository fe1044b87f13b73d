package engine

import (
	"time"

	"github.com/iamNilotpal/ignite/internal/checker"
	"github.com/iamNilotpal/ignite/pkg/errors"
)

// Check runs the offline verify/repair pass against the currently loaded
// index, compact table and shadow index. repair=false never mutates
// anything; repair=true corrects findings in place and leaves the engine's
// in-memory state ready to be committed as a fresh snapshot by the caller's
// next Commit. A non-zero maxDuration bounds how much of the segment log
// gets walked before Check returns early with Report.TimedOut set.
func (e *Engine) Check(repair bool, maxDuration time.Duration) (*checker.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return nil, err
	}
	if repair && e.state == StateOpenDirty {
		return nil, errors.NewRepositoryError(nil, errors.ErrorCodeInvalidState, "check(repair=true) requires a clean transaction; commit or rollback first").
			WithPath(e.dir)
	}

	report, err := checker.Check(&checker.Source{
		SegMgr: e.segMgr,
		Idx:    e.idx,
		Ct:     e.compact,
		Si:     e.shadow,
		Log:    e.log,
	}, checker.Options{Repair: repair, MaxDuration: maxDuration})
	if err != nil {
		return report, errors.NewRepositoryError(err, errors.ErrorCodeCheckFailed, "check pass failed").WithPath(e.dir)
	}

	if repair && report.HasFindings() {
		// Commit needs a write segment to seal; open one now so the repaired
		// state can be committed even when nothing was written since open.
		if err := e.ensureActiveSegmentLocked(); err != nil {
			return report, err
		}
		e.state = StateOpenDirty
	}
	return report, nil
}
