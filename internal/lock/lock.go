package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

const controlFileName = "lock.control"

// New builds a Manager for the repository rooted at config.Dir. It does
// not acquire anything yet.
func New(config *Config) (*Manager, error) {
	if config == nil || config.Dir == "" || config.Log == nil {
		return nil, errors.NewLockFailedError(nil, "").WithMessage("lock: dir and logger are required")
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Manager{
		dir:  config.Dir,
		wait: config.Wait,
		log:  config.Log,
		identity: Identity{
			Host: host,
			PID:  os.Getpid(),
			TID:  uuid.NewString(),
		},
		fl: flock.New(filepath.Join(config.Dir, controlFileName)),
	}, nil
}

// Identity returns the identity this Manager presents on disk.
func (m *Manager) Identity() Identity { return m.identity }

// Mode returns the lock mode currently held, or ModeNone.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// AcquireShared acquires the lock in shared mode, waiting up to m.wait.
func (m *Manager) AcquireShared(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeNone {
		return errors.NewLockFailedError(nil, m.dir).WithMessage("lock already held by this manager")
	}

	ok, err := m.tryLock(ctx, m.fl.TryRLockContext)
	if err != nil || !ok {
		return errors.NewLockFailedError(err, m.dir).WithMessage("failed to acquire shared lock")
	}

	marker := filepath.Join(m.dir, fmt.Sprintf("lock.%s", m.identity.TID))
	if err := m.writeMarker(marker); err != nil {
		m.fl.Unlock()
		return err
	}

	m.mode = ModeShared
	m.markerPath = marker
	m.log.Infow("acquired shared lock", "dir", m.dir, "identity", m.identity.TID)
	return nil
}

// AcquireExclusive acquires the lock in exclusive mode, waiting up to
// m.wait.
func (m *Manager) AcquireExclusive(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeNone {
		return errors.NewLockFailedError(nil, m.dir).WithMessage("lock already held by this manager")
	}

	ok, err := m.tryLock(ctx, m.fl.TryLockContext)
	if err != nil || !ok {
		return errors.NewLockFailedError(err, m.dir).WithMessage("failed to acquire exclusive lock")
	}

	marker := filepath.Join(m.dir, "lock.exclusive")
	if err := m.writeMarker(marker); err != nil {
		m.fl.Unlock()
		return err
	}

	m.mode = ModeExclusive
	m.markerPath = marker
	m.log.Infow("acquired exclusive lock", "dir", m.dir, "identity", m.identity.TID)
	return nil
}

// Upgrade converts a held shared lock to exclusive. This succeeds only if
// no other holder exists; on failure the manager keeps its shared lock
// exactly as it was - it is never silently downgraded to none.
func (m *Manager) Upgrade(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeExclusive {
		return nil
	}
	if m.mode != ModeShared {
		return errors.NewLockFailedError(nil, m.dir).WithMessage("cannot upgrade a lock that isn't held in shared mode")
	}

	// flock(2) allows converting LOCK_SH to LOCK_EX on the same fd without
	// an intervening unlock, so the shared lock is never released on the
	// way to acquiring the exclusive one.
	ok, err := m.tryLock(ctx, m.fl.TryLockContext)
	if err != nil || !ok {
		return errors.NewLockFailedError(err, m.dir).WithMessage("failed to upgrade lock to exclusive").
			WithStep("lock-upgrade")
	}

	oldMarker := m.markerPath
	newMarker := filepath.Join(m.dir, "lock.exclusive")
	if err := m.writeMarker(newMarker); err != nil {
		return err
	}
	if oldMarker != newMarker {
		os.Remove(oldMarker)
	}

	m.mode = ModeExclusive
	m.markerPath = newMarker
	m.log.Infow("upgraded lock to exclusive", "dir", m.dir, "identity", m.identity.TID)
	return nil
}

// Release unlocks the control file and removes this manager's identity
// marker. Safe to call even if nothing is held.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeNone {
		return nil
	}

	if m.markerPath != "" {
		os.Remove(m.markerPath)
	}
	err := m.fl.Unlock()
	m.mode = ModeNone
	m.markerPath = ""
	return err
}

// BreakLock forcibly removes another process's stale identity marker and
// attempts to take the control lock fresh. Callers must have independently
// confirmed the original holder is demonstrably dead; this function
// performs no liveness check itself.
func BreakLock(dir string, staleMarker string) error {
	path := filepath.Join(dir, staleMarker)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewLockFailedError(err, dir).WithMessage("failed to remove stale lock marker")
	}
	return nil
}

// retryDelay is how often a waiting Acquire* re-attempts the lock while
// its deadline has not yet elapsed.
const retryDelay = 25 * time.Millisecond

func (m *Manager) tryLock(ctx context.Context, try func(context.Context, time.Duration) (bool, error)) (bool, error) {
	wait := m.wait
	if wait <= 0 {
		wait = time.Millisecond // try exactly once, fail fast.
	}
	c, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return try(c, retryDelay)
}

func (m *Manager) writeMarker(path string) error {
	contents := fmt.Sprintf("host=%s\npid=%d\ntid=%s\n", m.identity.Host, m.identity.PID, m.identity.TID)
	if err := filesys.WriteFile(path, 0644, []byte(contents)); err != nil {
		return errors.NewLockFailedError(err, path).WithMessage("failed to write lock identity marker")
	}
	return nil
}
