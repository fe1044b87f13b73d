// Package lock implements the filesystem-based shared/exclusive lock that
// guards an entire repository: one writer or many readers, never both, with
// upgrade from shared to exclusive for the replay path.
//
// Locking rides on a single flock(2)-backed control file
// (<repo>/lock.control) via github.com/gofrs/flock: flock(2)'s same-fd
// upgrade semantics (a process holding LOCK_SH can call flock() again with
// LOCK_EX on the same descriptor without ever being unlocked in between)
// let upgrade succeed only when no other holder exists, and never downgrade
// state on failure. A second, purely informational identity file
// (lock.exclusive for the exclusive holder, lock.<identity> for a shared
// one) records host/pid identity on disk for stale-lock diagnosis by an
// operator - it plays no part in the actual mutual exclusion, which the
// kernel enforces via the control file.
package lock

import (
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Mode is the lock mode a Manager currently holds.
type Mode int

const (
	ModeNone Mode = iota
	ModeShared
	ModeExclusive
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	default:
		return "none"
	}
}

// Identity names the process holding (or attempting to hold) a lock, so a
// stale lock left by a dead process can be recognized by an operator.
type Identity struct {
	Host string
	PID  int
	TID  string // a per-Manager unique token; Go has no OS thread id worth exposing.
}

// Config carries the parameters needed to construct a Manager.
type Config struct {
	// Dir is the repository root; the control and identity files live
	// directly inside it.
	Dir string
	// Wait is how long Acquire* will retry before giving up with
	// LockFailed. Zero means try once.
	Wait time.Duration
	Log  *zap.SugaredLogger
}

// Manager owns the lock state for one open repository.
type Manager struct {
	mu sync.Mutex

	dir      string
	wait     time.Duration
	log      *zap.SugaredLogger
	identity Identity

	fl         *flock.Flock
	mode       Mode
	markerPath string
}
