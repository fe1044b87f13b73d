package hints

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/iamNilotpal/ignite/internal/index"
	"github.com/iamNilotpal/ignite/pkg/filesys"
)

var hintsMagic = [4]byte{'H', 'N', 'T', '1'}

// WriteSnapshot atomically persists ct and si together as a single
// hints.<tid> file, via the same temp+fsync+rename+dirfsync primitive the
// index snapshot uses. Unlike the index, hints carries no separate
// signature file: it can always be regenerated from the segments
// (RebuildSparse for the compact table, a segment replay for the shadow
// index), so a corrupt or missing hints file is rebuilt rather than treated
// as a fatal condition.
func WriteSnapshot(path string, ct *CompactTable, si *ShadowIndex) error {
	buf := &bytes.Buffer{}
	buf.Write(hintsMagic[:])

	ct.mu.RLock()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(ct.obsolete)))
	buf.Write(n[:])
	for segID, obsolete := range ct.obsolete {
		var rec [16]byte
		binary.LittleEndian.PutUint64(rec[0:8], segID)
		binary.LittleEndian.PutUint64(rec[8:16], obsolete)
		buf.Write(rec[:])
	}
	ct.mu.RUnlock()

	si.mu.RLock()
	binary.LittleEndian.PutUint64(n[:], uint64(len(si.m)))
	buf.Write(n[:])
	for key, segs := range si.m {
		buf.Write(key[:])
		var cnt [4]byte
		binary.LittleEndian.PutUint32(cnt[:], uint32(len(segs)))
		buf.Write(cnt[:])
		for _, s := range segs {
			var sb [8]byte
			binary.LittleEndian.PutUint64(sb[:], s)
			buf.Write(sb[:])
		}
	}
	si.mu.RUnlock()

	return filesys.WriteFileAtomic(path, 0644, buf.Bytes())
}

// ReadSnapshot loads a hints.<tid> file written by WriteSnapshot.
func ReadSnapshot(path string) (*CompactTable, *ShadowIndex, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(contents) < 4+8 || !bytes.Equal(contents[0:4], hintsMagic[:]) {
		return nil, nil, fmt.Errorf("hints snapshot malformed or wrong magic")
	}

	ct := NewCompactTable()
	si := NewShadowIndex()

	off := 4
	compactCount := binary.LittleEndian.Uint64(contents[off : off+8])
	off += 8
	for i := uint64(0); i < compactCount; i++ {
		if off+16 > len(contents) {
			return nil, nil, fmt.Errorf("hints snapshot truncated in compact table")
		}
		segID := binary.LittleEndian.Uint64(contents[off : off+8])
		obsolete := binary.LittleEndian.Uint64(contents[off+8 : off+16])
		ct.obsolete[segID] = obsolete
		off += 16
	}

	if off+8 > len(contents) {
		return nil, nil, fmt.Errorf("hints snapshot truncated before shadow index")
	}
	shadowCount := binary.LittleEndian.Uint64(contents[off : off+8])
	off += 8
	for i := uint64(0); i < shadowCount; i++ {
		if off+index.KeySize+4 > len(contents) {
			return nil, nil, fmt.Errorf("hints snapshot truncated in shadow index")
		}
		var key index.Key
		copy(key[:], contents[off:off+index.KeySize])
		off += index.KeySize
		segCount := binary.LittleEndian.Uint32(contents[off : off+4])
		off += 4
		segs := make([]uint64, 0, segCount)
		for j := uint32(0); j < segCount; j++ {
			if off+8 > len(contents) {
				return nil, nil, fmt.Errorf("hints snapshot truncated in shadow segment list")
			}
			segs = append(segs, binary.LittleEndian.Uint64(contents[off:off+8]))
			off += 8
		}
		si.m[key] = segs
	}

	return ct, si, nil
}
