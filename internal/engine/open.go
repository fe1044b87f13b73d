package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ignite/internal/hints"
	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/internal/lock"
	"github.com/iamNilotpal/ignite/internal/segment"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

// New constructs an Engine bound to config.Options.DataDir. The returned
// Engine starts in StateClosed; call Open or Create before any other
// method.
func New(config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "engine configuration is required").
			WithField("config").WithRule("required").WithProvided(config)
	}

	return &Engine{
		opts:  config.Options,
		log:   config.Logger,
		dir:   config.Options.DataDir,
		state: StateClosed,
	}, nil
}

// Create initializes a brand-new, empty repository on disk: README,
// config, nonce, and an empty data/ tree. It then behaves like Open,
// leaving the engine in StateOpenClean. Returns AlreadyExists if a
// repository already lives at the configured path.
func (e *Engine) Create(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeInvalidState, "create() is only legal while closed").WithPath(e.dir)
	}

	if exists, _ := filesys.Exists(readmePath(e.dir)); exists {
		return errors.NewAlreadyExistsError(e.dir)
	}
	if exists, _ := filesys.Exists(e.dir); exists {
		entries, err := os.ReadDir(e.dir)
		if err == nil && len(entries) > 0 {
			return errors.NewRepositoryError(nil, errors.ErrorCodePathAlreadyExists, "target path already contains unrelated files").WithPath(e.dir)
		}
	} else {
		parent := filepath.Dir(e.dir)
		if exists, _ := filesys.Exists(parent); !exists {
			return errors.NewRepositoryError(nil, errors.ErrorCodeParentPathDoesNotExist, "parent directory does not exist").WithPath(e.dir)
		}
	}

	if err := filesys.CreateDir(e.dir, 0755, true); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create repository directory").WithPath(e.dir)
	}

	repoID, err := newRepositoryID()
	if err != nil {
		return errors.NewRepositoryError(err, errors.ErrorCodeInternal, "failed to generate repository id").WithPath(e.dir)
	}

	if err := writeReadme(e.dir); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write README").WithPath(e.dir)
	}
	if err := writeInitialNonce(e.dir); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write nonce file").WithPath(e.dir)
	}

	cfg := repoFileConfig{
		Version:             repositoryVersion,
		ID:                  repoID,
		SegmentsPerDir:      e.opts.SegmentOptions.SegmentsPerDir,
		MaxSegmentSize:      e.opts.SegmentOptions.Size,
		AppendOnly:          e.opts.AppendOnly,
		AdditionalFreeSpace: e.opts.AdditionalFreeSpace,
		StorageQuota:        e.opts.StorageQuota,
	}
	if err := writeRepoConfig(e.dir, cfg); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write repository config").WithPath(e.dir)
	}

	if err := e.initSubsystems(); err != nil {
		return err
	}

	idx, err := index.New(&index.Config{DataDir: e.dir, Logger: e.log})
	if err != nil {
		return err
	}

	e.repoID = repoID
	e.idx = idx
	e.compact = hints.NewCompactTable()
	e.shadow = hints.NewShadowIndex()
	e.segmentStartID = 1
	e.segmentStartOffset = 0
	e.pending = nil

	if err := e.lockMgr.AcquireExclusive(ctx); err != nil {
		return err
	}

	e.state = StateOpenClean
	e.log.Infow("repository created", "dir", e.dir, "id", e.repoID)
	return nil
}

// Open acquires the repository lock (shared by default, exclusive if
// options.Exclusive), validates the on-disk config and README, locates the
// latest committed segment, and loads or replays the index. Returns
// DoesNotExist if no repository lives at the path.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeInvalidState, "open() is only legal while closed").WithPath(e.dir)
	}

	if exists, _ := filesys.Exists(readmePath(e.dir)); !exists {
		return errors.NewDoesNotExistError(e.dir)
	}
	if err := verifyReadme(e.dir); err != nil {
		return err
	}

	cfg, err := readRepoConfig(e.dir)
	if err != nil {
		return err
	}

	// The durable settings in cfg were fixed at Create() time and describe
	// the physical on-disk layout (bucketing, segment size) and the
	// append-only guarantee; they must win over whatever the caller passed
	// in e.opts for this process; e.opts is cloned rather than mutated in
	// place so a caller reusing the same *options.Options across multiple
	// engines never sees it change out from under them.
	opts := *e.opts
	segOpts := *e.opts.SegmentOptions
	segOpts.SegmentsPerDir = cfg.SegmentsPerDir
	segOpts.Size = cfg.MaxSegmentSize
	opts.SegmentOptions = &segOpts
	opts.AppendOnly = cfg.AppendOnly
	opts.AdditionalFreeSpace = cfg.AdditionalFreeSpace
	opts.StorageQuota = cfg.StorageQuota
	e.opts = &opts

	if err := e.initSubsystems(); err != nil {
		return err
	}
	e.repoID = cfg.ID

	mode := lock.ModeShared
	if e.opts.Exclusive {
		mode = lock.ModeExclusive
	}
	if mode == lock.ModeExclusive {
		if err := e.lockMgr.AcquireExclusive(ctx); err != nil {
			return err
		}
	} else {
		if err := e.lockMgr.AcquireShared(ctx); err != nil {
			return err
		}
	}

	if err := e.recover(ctx, cfg); err != nil {
		e.lockMgr.Release()
		return err
	}

	e.state = StateOpenClean
	e.log.Infow("repository opened", "dir", e.dir, "id", e.repoID, "lock", e.lockMgr.Mode().String())
	return nil
}

// initSubsystems constructs the segment manager and lock manager shared by
// Create and Open. Must be called with e.mu held.
func (e *Engine) initSubsystems() error {
	segMgr, err := segment.New(&segment.Config{Options: e.opts, Logger: e.log})
	if err != nil {
		return err
	}
	e.segMgr = segMgr

	lockMgr, err := lock.New(&lock.Config{Dir: e.dir, Wait: e.opts.LockWait, Log: e.log})
	if err != nil {
		return err
	}
	e.lockMgr = lockMgr
	return nil
}

// Close releases the repository lock and all in-memory state. Any pending
// mutation since the last commit is discarded - close without commit is an
// implicit rollback.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeEngineClosed, "repository is already closed").WithPath(e.dir)
	}

	if e.state == StateOpenDirty {
		e.rollbackLocked()
	}

	var firstErr error
	if e.segMgr != nil {
		if err := e.segMgr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.idx != nil {
		if err := e.idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.lockMgr != nil {
		if err := e.lockMgr.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.state = StateClosed
	e.closed.Store(true)
	return firstErr
}

// Destroy unlinks every segment and metadata file, holding the lock until
// the last step. Refused outright in append-only mode (DESIGN.md's Open
// Question decision #2): an append-only repository is one nothing should
// ever be able to unlink.
func (e *Engine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return errors.NewRepositoryError(nil, errors.ErrorCodeInvalidState, "destroy() requires an open repository").WithPath(e.dir)
	}
	if e.opts.AppendOnly {
		return errors.NewRepositoryError(nil, errors.ErrorCodeInvalidState, "destroy() is refused on an append-only repository").WithPath(e.dir)
	}

	if err := e.lockMgr.Upgrade(ctx); err != nil {
		return err
	}

	ids, err := e.segMgr.ListSegments()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.segMgr.DeleteSegment(id); err != nil {
			return err
		}
	}

	for _, name := range []string{"config", "README", "nonce"} {
		os.Remove(filepath.Join(e.dir, name))
	}
	removeGlob(filepath.Join(e.dir, "index.*"))
	removeGlob(filepath.Join(e.dir, "hints.*"))
	removeGlob(filepath.Join(e.dir, "lock.*"))

	e.segMgr.Close()
	e.idx.Close()
	e.lockMgr.Release()

	os.Remove(filepath.Join(e.dir, "data"))
	os.Remove(e.dir)

	e.state = StateClosed
	e.closed.Store(true)
	e.log.Infow("repository destroyed", "dir", e.dir)
	return nil
}

func removeGlob(pattern string) {
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		os.Remove(m)
	}
}
