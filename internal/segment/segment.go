package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/iamNilotpal/ignite/pkg/filesys"
	"github.com/iamNilotpal/ignite/pkg/seginfo"
)

// New constructs a Manager. It does not open or create any segment file -
// callers must call OpenForAppend once they know, from recovery, which
// segment id is the correct one to resume writing to.
func New(config *Config) (*Manager, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeInvalidInput, "segment: config, options and logger are required")
	}

	segDir := config.Options.SegmentOptions.Directory
	root := config.Options.DataDir

	if err := filesys.CreateDir(filepath.Join(root, segDir), 0755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create segment directory").
			WithPath(segDir)
	}

	return &Manager{
		dataDir:        root,
		segmentDir:     segDir,
		segmentsPerDir: config.Options.SegmentOptions.SegmentsPerDir,
		maxSize:        config.Options.SegmentOptions.Size,
		log:            config.Logger,
	}, nil
}

// OpenForAppend makes `id` the active write segment, creating it (with its
// magic header) if it doesn't exist yet, or opening and seeking to the end
// of it if it does. The caller is responsible for having already resolved,
// via recovery, which id is legitimate to resume appending to.
func (m *Manager) OpenForAppend(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openForAppendLocked(id)
}

func (m *Manager) openForAppendLocked(id uint64) error {
	if m.activeFile != nil {
		if err := m.activeFile.Close(); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close previous active segment").
				WithSegmentID(int(m.activeID))
		}
		m.activeFile = nil
	}

	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, id, m.segmentsPerDir)
	if err := filesys.CreateDir(seginfo.BucketDir(m.dataDir, m.segmentDir, id, m.segmentsPerDir), 0755, true); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create segment bucket directory").WithPath(path)
	}

	stat, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return classifyOpenErr(err, path, id)
	}

	if isNew {
		if _, err := file.Write(Magic[:]); err != nil {
			file.Close()
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write segment magic header").
				WithPath(path).WithSegmentID(int(id))
		}
		if err := file.Sync(); err != nil {
			file.Close()
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync new segment").
				WithPath(path).WithSegmentID(int(id))
		}
		m.activeSize = int64(len(Magic))
	} else {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of segment").
				WithPath(path).WithSegmentID(int(id))
		}
		m.activeSize = stat.Size()
	}

	m.activeFile = file
	m.activeID = id

	m.log.Infow("segment opened for append", "segmentID", id, "path", path, "new", isNew, "size", m.activeSize)
	return nil
}

func classifyOpenErr(err error, path string, id uint64) error {
	fileName := strconv.FormatUint(id, 10)
	classified := errors.ClassifyFileOpenError(err, path, fileName)
	if se, ok := classified.(*errors.StorageError); ok {
		return se.WithSegmentID(int(id))
	}
	return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open segment file").
		WithPath(path).WithSegmentID(int(id))
}

// ActiveID returns the id of the segment currently open for append.
func (m *Manager) ActiveID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// ActiveSize returns the current size, in bytes, of the active segment.
func (m *Manager) ActiveSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSize
}

// maybeRotateLocked creates a new segment and makes it active if appending
// `entryLen` more bytes would push the current one past its soft size
// target. Must be called with m.mu held.
func (m *Manager) maybeRotateLocked(entryLen int) error {
	if m.activeFile == nil {
		return errors.NewStorageError(nil, errors.ErrorCodeIO, "no active segment open for append; call OpenForAppend first")
	}
	if uint64(m.activeSize)+uint64(entryLen) <= m.maxSize {
		return nil
	}
	return m.openForAppendLocked(m.activeID + 1)
}

// WritePut appends a PUT entry for key/payload to the active segment,
// rotating first if needed. Returns the entry's segment id, header offset
// and total framed size.
func (m *Manager) WritePut(key [KeySize]byte, payload []byte) (segmentID uint64, offset int64, size uint32, err error) {
	frame := encodeEntry(TagPut, key, payload)
	return m.appendFrame(frame)
}

// WriteDelete appends a DELETE tombstone for key to the active segment.
func (m *Manager) WriteDelete(key [KeySize]byte) (segmentID uint64, offset int64, size uint32, err error) {
	frame := encodeEntry(TagDelete, key, nil)
	return m.appendFrame(frame)
}

// WriteCommit appends the COMMIT terminator to the active segment, fsyncs
// the file, then fsyncs the parent bucket directory. This is the single
// durability point: once this call returns nil, the active segment's id is
// the new transaction id.
func (m *Manager) WriteCommit() (segmentID uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeFile == nil {
		return 0, errors.NewStorageError(nil, errors.ErrorCodeIO, "no active segment to commit")
	}

	frame := encodeEntry(TagCommit, [KeySize]byte{}, nil)
	if _, err := m.activeFile.Write(frame); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write commit entry").
			WithSegmentID(int(m.activeID))
	}
	if err := m.activeFile.Sync(); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync commit entry").
			WithSegmentID(int(m.activeID))
	}

	bucket := seginfo.BucketDir(m.dataDir, m.segmentDir, m.activeID, m.segmentsPerDir)
	if err := filesys.SyncDir(bucket); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync segment bucket directory").
			WithSegmentID(int(m.activeID)).WithPath(bucket)
	}

	m.activeSize += int64(len(frame))
	return m.activeID, nil
}

func (m *Manager) appendFrame(frame []byte) (segmentID uint64, offset int64, size uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.maybeRotateLocked(len(frame)); err != nil {
		return 0, 0, 0, err
	}

	off := m.activeSize
	if _, err := m.activeFile.Write(frame); err != nil {
		return 0, 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append entry").
			WithSegmentID(int(m.activeID)).WithOffset(int(off))
	}
	m.activeSize += int64(len(frame))

	return m.activeID, off, uint32(len(frame)), nil
}

// TruncateActive truncates the active segment to `size` bytes, for
// rollback. The caller must ensure `size` lies on an entry boundary.
func (m *Manager) TruncateActive(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeFile == nil {
		return errors.NewStorageError(nil, errors.ErrorCodeIO, "no active segment to truncate")
	}
	if err := m.activeFile.Truncate(size); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to truncate segment").
			WithSegmentID(int(m.activeID)).WithOffset(int(size))
	}
	if _, err := m.activeFile.Seek(size, io.SeekStart); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to reposition after truncate").
			WithSegmentID(int(m.activeID))
	}
	if err := m.activeFile.Sync(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync after truncate").
			WithSegmentID(int(m.activeID))
	}
	m.activeSize = size
	return nil
}

// ReadAt reads and verifies a single entry at `offset` within `segmentID`.
func (m *Manager) ReadAt(segmentID uint64, offset int64) (Entry, error) {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)

	file, err := os.Open(path)
	if err != nil {
		return Entry{}, classifyOpenErr(err, path, segmentID)
	}
	defer file.Close()

	var header [headerLen]byte
	if _, err := file.ReadAt(header[:], offset); err != nil {
		return Entry{}, errors.NewStorageError(err, errors.ErrorCodeHeaderReadFailure, "failed to read entry header").
			WithSegmentID(int(segmentID)).WithOffset(int(offset))
	}

	length, crc, tag := decodeHeader(header)
	if length < headerLen {
		return Entry{}, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "entry length shorter than header").
			WithSegmentID(int(segmentID)).WithOffset(int(offset))
	}

	rest := make([]byte, length-headerLen)
	if len(rest) > 0 {
		if _, err := file.ReadAt(rest, offset+headerLen); err != nil {
			return Entry{}, errors.NewStorageError(err, errors.ErrorCodePayloadReadFailure, "failed to read entry body").
				WithSegmentID(int(segmentID)).WithOffset(int(offset))
		}
	}

	key, payload, err := decodeBody(tag, crc, header[8], rest)
	if err != nil {
		return Entry{}, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "entry failed integrity check").
			WithSegmentID(int(segmentID)).WithOffset(int(offset))
	}

	return Entry{Tag: tag, Key: key, Payload: payload, Offset: offset, Size: length}, nil
}

// Iterator walks the entries of a single segment in order, stopping at the
// first framing error (a torn tail) rather than failing outright.
type Iterator struct {
	file       *os.File
	reader     *bufio.Reader
	offset     int64
	validBytes int64
	segmentID  uint64
	err        error
}

// IterEntries opens `segmentID` for a forward scan starting just after the
// magic header.
func (m *Manager) IterEntries(segmentID uint64) (*Iterator, error) {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)
	file, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenErr(err, path, segmentID)
	}

	var magic [8]byte
	if _, err := io.ReadFull(file, magic[:]); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeHeaderReadFailure, "failed to read segment magic").
			WithSegmentID(int(segmentID))
	}
	if magic != Magic {
		file.Close()
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "segment magic mismatch").
			WithSegmentID(int(segmentID))
	}

	return &Iterator{
		file:       file,
		reader:     bufio.NewReader(file),
		offset:     int64(len(Magic)),
		validBytes: int64(len(Magic)),
		segmentID:  segmentID,
	}, nil
}

// Next returns the next entry, or ok=false when iteration has stopped -
// either cleanly at EOF or because a framing error was found (check Err).
func (it *Iterator) Next() (entry Entry, ok bool) {
	if it.err != nil {
		return Entry{}, false
	}

	var header [headerLen]byte
	if _, err := io.ReadFull(it.reader, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			it.err = fmt.Errorf("torn entry header at offset %d: %w", it.offset, err)
		} else if err != io.EOF {
			it.err = err
		}
		return Entry{}, false
	}

	length, crc, tag := decodeHeader(header)
	if length < headerLen {
		it.err = fmt.Errorf("entry at offset %d has invalid length %d", it.offset, length)
		return Entry{}, false
	}

	rest := make([]byte, length-headerLen)
	if len(rest) > 0 {
		if _, err := io.ReadFull(it.reader, rest); err != nil {
			it.err = fmt.Errorf("torn entry at offset %d: %w", it.offset, err)
			return Entry{}, false
		}
	}

	key, payload, err := decodeBody(tag, crc, header[8], rest)
	if err != nil {
		it.err = fmt.Errorf("corrupt entry at offset %d: %w", it.offset, err)
		return Entry{}, false
	}

	entry = Entry{Tag: tag, Key: key, Payload: payload, Offset: it.offset, Size: length}
	it.offset += int64(length)
	it.validBytes = it.offset
	return entry, true
}

// Err returns the error that stopped iteration, or nil if iteration reached
// a clean EOF.
func (it *Iterator) Err() error { return it.err }

// ValidBytes reports how many bytes from the start of the segment were
// successfully parsed before iteration stopped.
func (it *Iterator) ValidBytes() int64 { return it.validBytes }

// Close releases the iterator's file handle.
func (it *Iterator) Close() error { return it.file.Close() }

// IsCommitted reports whether the last entry in `segmentID` is a
// well-formed COMMIT.
func (m *Manager) IsCommitted(segmentID uint64) (bool, error) {
	it, err := m.IterEntries(segmentID)
	if err != nil {
		return false, err
	}
	defer it.Close()

	var last Entry
	var seen bool
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		last = e
		seen = true
	}
	if it.Err() != nil {
		return false, nil
	}
	return seen && last.Tag == TagCommit, nil
}

// ListSegments returns every segment id on disk, ascending.
func (m *Manager) ListSegments() ([]uint64, error) {
	ids, err := seginfo.ListSegmentIDs(m.dataDir, m.segmentDir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to list segments")
	}
	return ids, nil
}

// DeleteSegment unlinks segmentID's file, fsyncing its parent bucket
// directory afterward.
func (m *Manager) DeleteSegment(segmentID uint64) error {
	path := seginfo.SegmentPath(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)
	bucket := seginfo.BucketDir(m.dataDir, m.segmentDir, segmentID, m.segmentsPerDir)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete segment").
			WithSegmentID(int(segmentID)).WithPath(path)
	}
	if err := filesys.SyncDir(bucket); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to fsync bucket directory after delete").
			WithSegmentID(int(segmentID)).WithPath(bucket)
	}
	return nil
}

// Close closes the active segment file handle, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.activeFile == nil {
		return nil
	}
	return m.activeFile.Close()
}
