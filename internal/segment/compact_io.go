package segment

import (
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
	"github.com/iamNilotpal/ignite/pkg/seginfo"
)

// CompactedPut is one live PUT entry compaction is copying forward into a
// fresh segment.
type CompactedPut struct {
	Key     [KeySize]byte
	Payload []byte
}

// CompactedDelete is one DELETE tombstone compaction is copying forward
// because its shadowing obligation isn't yet discharged.
type CompactedDelete struct {
	Key [KeySize]byte
}

// CompactedLocation is where one copied-forward PUT landed in the new
// segment, so the caller (the transaction manager) can update its index.
type CompactedLocation struct {
	Key    [KeySize]byte
	Offset int64
	Size   uint32
}

// WriteCompactedSegment writes a brand-new, already-sealed segment
// (magic + entries + COMMIT) at id newID, independent of the Manager's
// single active write slot - compaction output is never the segment new
// mutations append to. newID must not already exist on disk.
//
// It returns the location of every copied-forward PUT so the caller can
// repoint its index at the new segment.
func (m *Manager) WriteCompactedSegment(newID uint64, puts []CompactedPut, deletes []CompactedDelete) ([]CompactedLocation, error) {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, newID, m.segmentsPerDir)
	bucket := seginfo.BucketDir(m.dataDir, m.segmentDir, newID, m.segmentsPerDir)

	if err := filesys.CreateDir(bucket, 0755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create compaction bucket directory").WithPath(bucket)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeIO, "compaction target segment already exists").
			WithPath(path).WithSegmentID(int(newID))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0644)
	if err != nil {
		return nil, classifyOpenErr(err, path, newID)
	}
	defer file.Close()

	if _, err := file.Write(Magic[:]); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted segment magic").
			WithPath(path).WithSegmentID(int(newID))
	}

	offset := int64(len(Magic))
	locations := make([]CompactedLocation, 0, len(puts))

	for _, p := range puts {
		frame := encodeEntry(TagPut, p.Key, p.Payload)
		if _, err := file.Write(frame); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted PUT").
				WithPath(path).WithSegmentID(int(newID))
		}
		locations = append(locations, CompactedLocation{Key: p.Key, Offset: offset, Size: uint32(len(frame))})
		offset += int64(len(frame))
	}

	for _, d := range deletes {
		frame := encodeEntry(TagDelete, d.Key, nil)
		if _, err := file.Write(frame); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted DELETE").
				WithPath(path).WithSegmentID(int(newID))
		}
		offset += int64(len(frame))
	}

	commitFrame := encodeEntry(TagCommit, [KeySize]byte{}, nil)
	if _, err := file.Write(commitFrame); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted segment commit").
			WithPath(path).WithSegmentID(int(newID))
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync compacted segment").
			WithPath(path).WithSegmentID(int(newID))
	}
	if err := filesys.SyncDir(bucket); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync compacted segment bucket directory").
			WithPath(bucket).WithSegmentID(int(newID))
	}

	return locations, nil
}

// SegmentSize stats segmentID's file size on disk, used by the compaction
// eligibility check against the compact table's obsolete-byte count.
func (m *Manager) SegmentSize(segmentID uint64) (int64, error) {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)
	stat, err := os.Stat(path)
	if err != nil {
		return 0, classifyOpenErr(err, path, segmentID)
	}
	return stat.Size(), nil
}

// SegmentExists reports whether segmentID still has a file on disk.
func (m *Manager) SegmentExists(segmentID uint64) bool {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)
	_, err := os.Stat(path)
	return err == nil
}

// DataRoot returns the root directory segment files are stored under
// (dataDir/segmentDir), used by the free-space preflight to stat the
// filesystem segments actually live on.
func (m *Manager) DataRoot() string {
	return filepath.Join(m.dataDir, m.segmentDir)
}
