package engine

import (
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

// keyBlobPath is where the repository-local copy of the encryption key
// lives - the repokey scheme's whole point is that the key travels with
// the repository rather than only in the operator's local key cache.
// Ownership of what goes into the blob belongs entirely to the crypto
// layer; the engine only stores and retrieves opaque bytes.
func keyBlobPath(dir string) string {
	return filepath.Join(dir, "keys", "repokey")
}

// SaveKey persists blob as the repository's local key copy. An empty blob
// is a legal value and means "no repokey stored" - mirroring the
// collaborator layer's convention - so SaveKey(nil) is how a caller clears
// it rather than an error.
func (e *Engine) SaveKey(blob []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return err
	}

	path := keyBlobPath(e.dir)
	if err := filesys.CreateDir(filepath.Dir(path), 0700, true); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create key directory").WithPath(path)
	}
	if err := filesys.WriteFileAtomic(path, 0600, blob); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to persist repository key").WithPath(path)
	}
	return nil
}

// LoadKey returns the repository's locally-stored key blob, or a nil slice
// if none has ever been saved - never an error, since "no repokey" is a
// normal, common state (e.g. keyfile-mode repositories never call SaveKey).
func (e *Engine) LoadKey() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpenLocked(); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(keyBlobPath(e.dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read repository key").WithPath(keyBlobPath(e.dir))
	}
	return blob, nil
}
