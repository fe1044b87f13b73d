package engine

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

// repositoryReadme is the fixed text written to <repo>/README at create()
// time and checked at every open() - any other content (or a missing file)
// means the directory is not a repository this engine can use.
const repositoryReadme = "This is an Ignite repository.\n" +
	"This file is used to identify a directory as an Ignite repository.\n" +
	"Do not delete it, and do not edit its contents.\n"

const repositoryVersion = 1

// repoFileConfig is the parsed contents of <repo>/config: the handful of
// durable settings that must survive across processes, as opposed to
// options.Options's per-process tuning knobs (compaction threshold, lock wait)
// that a caller may legitimately vary from one open() to the next.
type repoFileConfig struct {
	Version             int
	ID                  [16]byte
	SegmentsPerDir      uint64
	MaxSegmentSize      uint64
	AppendOnly          bool
	AdditionalFreeSpace uint64
	StorageQuota        uint64
}

func configPath(dir string) string { return filepath.Join(dir, "config") }
func readmePath(dir string) string { return filepath.Join(dir, "README") }
func noncePath(dir string) string  { return filepath.Join(dir, "nonce") }

// writeRepoConfig serializes cfg as key=value text and persists it via the
// same temp+fsync+rename+dirfsync primitive every other durable file in
// the repository uses.
func writeRepoConfig(dir string, cfg repoFileConfig) error {
	lines := map[string]string{
		"version":               strconv.Itoa(cfg.Version),
		"id":                    hex.EncodeToString(cfg.ID[:]),
		"segments_per_dir":      strconv.FormatUint(cfg.SegmentsPerDir, 10),
		"max_segment_size":      strconv.FormatUint(cfg.MaxSegmentSize, 10),
		"append_only":           strconv.FormatBool(cfg.AppendOnly),
		"additional_free_space": strconv.FormatUint(cfg.AdditionalFreeSpace, 10),
		"storage_quota":         strconv.FormatUint(cfg.StorageQuota, 10),
	}

	keys := make([]string, 0, len(lines))
	for k := range lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, lines[k])
	}

	return filesys.WriteFileAtomic(configPath(dir), 0644, buf.Bytes())
}

// readRepoConfig parses <repo>/config. An unsupported version or a missing
// required key is an InvalidRepositoryConfig error, fatal at open.
func readRepoConfig(dir string) (repoFileConfig, error) {
	raw, err := os.ReadFile(configPath(dir))
	if err != nil {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config file is missing or unreadable")
	}

	values := make(map[string]string, 8)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	var cfg repoFileConfig

	version, err := strconv.Atoi(values["version"])
	if err != nil {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config key 'version' is missing or not an integer")
	}
	if version != repositoryVersion {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, fmt.Sprintf("unsupported repository version %d", version))
	}
	cfg.Version = version

	idBytes, err := hex.DecodeString(values["id"])
	if err != nil || len(idBytes) != 16 {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config key 'id' is missing or malformed")
	}
	copy(cfg.ID[:], idBytes)

	cfg.SegmentsPerDir, err = strconv.ParseUint(values["segments_per_dir"], 10, 64)
	if err != nil || cfg.SegmentsPerDir == 0 {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config key 'segments_per_dir' is missing or invalid")
	}

	cfg.MaxSegmentSize, err = strconv.ParseUint(values["max_segment_size"], 10, 64)
	if err != nil || cfg.MaxSegmentSize == 0 {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config key 'max_segment_size' is missing or invalid")
	}

	cfg.AppendOnly, err = strconv.ParseBool(values["append_only"])
	if err != nil {
		return repoFileConfig{}, errors.NewInvalidRepositoryConfigError(dir, "config key 'append_only' is missing or invalid")
	}

	// additional_free_space and storage_quota default to zero if absent:
	// both are caller-tunable and a zero/missing value means "unenforced",
	// not a configuration error.
	cfg.AdditionalFreeSpace, _ = strconv.ParseUint(values["additional_free_space"], 10, 64)
	cfg.StorageQuota, _ = strconv.ParseUint(values["storage_quota"], 10, 64)

	return cfg, nil
}

// writeReadme writes the fixed identifying text.
func writeReadme(dir string) error {
	return filesys.WriteFile(readmePath(dir), 0644, []byte(repositoryReadme))
}

// verifyReadme requires the exact fixed text: a missing or mismatched
// README is a fatal InvalidRepository error at open.
func verifyReadme(dir string) error {
	contents, err := os.ReadFile(readmePath(dir))
	if err != nil {
		return errors.NewInvalidRepositoryError(dir)
	}
	if string(contents) != repositoryReadme {
		return errors.NewInvalidRepositoryError(dir)
	}
	return nil
}

// newRepositoryID generates the 16-byte id that names this repository, the
// same width written into index.<tid>.signature and checked at every load.
func newRepositoryID() ([16]byte, error) {
	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("failed to generate repository id: %w", err)
	}
	return id, nil
}

// writeInitialNonce creates the nonce file required by the repository
// layout. Its counter semantics belong to the out-of-scope crypto layer
// (see DESIGN.md's Open Question decisions); the engine only ever creates
// it at create() time, holding a zero counter ("0000000000000000"), and
// otherwise leaves it untouched.
func writeInitialNonce(dir string) error {
	return filesys.WriteFile(noncePath(dir), 0644, []byte("0000000000000000"))
}
