package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

// snapshotMagic identifies an index.<tid> file.
var snapshotMagic = [4]byte{'I', 'N', 'D', '1'}

// entrySize is the on-disk width of one (key, RecordPointer) pair:
// 32-byte key + 8-byte segment + 8-byte offset + 4-byte size.
const entrySize = KeySize + 8 + 8 + 4

// WriteSnapshot writes path+".signature" - a small file proving the
// snapshot belongs to repoID - and then atomically persists idx to path as
// index.<tid>. Both writes use temp+fsync+rename+dirfsync
// (pkg/filesys.WriteFileAtomic); the signature is in place before the main
// snapshot file is renamed in, so a crash between the two leaves, at worst,
// a signature with no matching snapshot - rejected by ReadSnapshot and
// replayed past.
func (idx *Index) WriteSnapshot(path string, repoID [16]byte) error {
	idx.mu.RLock()
	buf := &bytes.Buffer{}
	buf.Write(snapshotMagic[:])
	buf.Write(repoID[:])

	count := uint64(len(idx.m))
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], count)
	buf.Write(countBuf[:])

	for k, rp := range idx.m {
		var entry [entrySize]byte
		copy(entry[0:KeySize], k[:])
		binary.LittleEndian.PutUint64(entry[KeySize:KeySize+8], rp.Segment)
		binary.LittleEndian.PutUint64(entry[KeySize+8:KeySize+16], uint64(rp.Offset))
		binary.LittleEndian.PutUint32(entry[KeySize+16:KeySize+20], rp.Size)
		buf.Write(entry[:])
	}
	idx.mu.RUnlock()

	contents := buf.Bytes()
	sig := sha256.Sum256(contents)
	sigContents := append(append([]byte{}, repoID[:]...), sig[:]...)
	if err := filesys.WriteFileAtomic(path+".signature", 0644, sigContents); err != nil {
		return errors.NewIndexCorruptionError("WriteSnapshot", len(idx.m), err)
	}

	if err := filesys.WriteFileAtomic(path, 0644, contents); err != nil {
		return errors.NewIndexCorruptionError("WriteSnapshot", len(idx.m), err)
	}

	return nil
}

// ReadSnapshot loads an index.<tid> snapshot from path, verifying its
// accompanying signature file matches both the snapshot's content hash and
// expectedRepoID. A missing or mismatched signature is always treated as a
// recoverable condition that forces the caller to fall back to replay,
// never a fatal error.
func ReadSnapshot(path string, expectedRepoID [16]byte, config *Config) (*Index, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sigContents, err := os.ReadFile(path + ".signature")
	if err != nil {
		return nil, fmt.Errorf("index snapshot signature unreadable, replay required: %w", err)
	}
	if len(sigContents) != 16+sha256.Size {
		return nil, fmt.Errorf("index snapshot signature malformed, replay required")
	}

	var sigRepoID [16]byte
	copy(sigRepoID[:], sigContents[:16])
	if sigRepoID != expectedRepoID {
		return nil, fmt.Errorf("index snapshot signature is for a different repository, replay required")
	}

	gotSum := sha256.Sum256(contents)
	if !bytes.Equal(gotSum[:], sigContents[16:]) {
		return nil, fmt.Errorf("index snapshot signature mismatch, replay required")
	}

	if len(contents) < 4+16+8 {
		return nil, fmt.Errorf("index snapshot truncated, replay required")
	}
	if !bytes.Equal(contents[0:4], snapshotMagic[:]) {
		return nil, fmt.Errorf("index snapshot magic mismatch, replay required")
	}

	var fileRepoID [16]byte
	copy(fileRepoID[:], contents[4:20])
	if fileRepoID != expectedRepoID {
		return nil, fmt.Errorf("index snapshot repository id mismatch, replay required")
	}

	count := binary.LittleEndian.Uint64(contents[20:28])
	body := contents[28:]
	if uint64(len(body)) != count*entrySize {
		return nil, fmt.Errorf("index snapshot entry count/body size mismatch, replay required")
	}

	idx, err := New(config)
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < count; i++ {
		e := body[i*entrySize : (i+1)*entrySize]
		var key Key
		copy(key[:], e[0:KeySize])
		seg := binary.LittleEndian.Uint64(e[KeySize : KeySize+8])
		off := int64(binary.LittleEndian.Uint64(e[KeySize+8 : KeySize+16]))
		size := binary.LittleEndian.Uint32(e[KeySize+16 : KeySize+20])
		idx.m[key] = RecordPointer{Segment: seg, Offset: off, Size: size}
	}

	return idx, nil
}
