// Package bloomfile persists a probabilistic existence filter over a
// rowset's key column. A negative answer is authoritative; a positive
// answer means "maybe present" and must be verified against the key column.
package bloomfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
)

// File layout:
//
//	magic "BFF1" (4) | version (1) | numKeys (8 LE) |
//	seed (8 LE) | segmentLength (4 LE) | segmentLengthMask (4 LE) |
//	segmentCount (4 LE) | segmentCountLength (4 LE) | fingerprints...

const (
	Magic         = "BFF1"
	FormatVersion = 1

	headerSize = 4 + 1 + 8 + 8 + 4 + 4 + 4 + 4
)

// ErrCorruption reports a malformed filter file.
var ErrCorruption = errors.New("bloomfile: corrupted file")

// HashKey maps an encoded key to the 64-bit hash inserted in the filter.
func HashKey(encodedKey []byte) uint64 {
	return xxhash.Sum64(encodedKey)
}

// Write builds a BinaryFuse8 filter from key hashes and persists it.
// Duplicate hashes are tolerated: population is retried on a deduplicated
// set when the filter construction rejects them.
func Write(path string, hashes []uint64) error {
	filter, err := xorfilter.PopulateBinaryFuse8(hashes)
	if err != nil {
		filter, err = xorfilter.PopulateBinaryFuse8(dedup(hashes))
		if err != nil {
			return fmt.Errorf("building existence filter: %w", err)
		}
	}

	buf := make([]byte, headerSize, headerSize+len(filter.Fingerprints))
	copy(buf[0:4], Magic)
	buf[4] = FormatVersion
	binary.LittleEndian.PutUint64(buf[5:13], uint64(len(hashes)))
	binary.LittleEndian.PutUint64(buf[13:21], filter.Seed)
	binary.LittleEndian.PutUint32(buf[21:25], filter.SegmentLength)
	binary.LittleEndian.PutUint32(buf[25:29], filter.SegmentLengthMask)
	binary.LittleEndian.PutUint32(buf[29:33], filter.SegmentCount)
	binary.LittleEndian.PutUint32(buf[33:37], filter.SegmentCountLength)
	buf = append(buf, filter.Fingerprints...)

	return os.WriteFile(path, buf, 0644)
}

func dedup(hashes []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(hashes))
	out := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Reader answers membership probes against a loaded filter file.
type Reader struct {
	filter  xorfilter.BinaryFuse8
	numKeys uint64
}

// Open loads a filter file fully into memory.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening filter file: %w", err)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, smaller than the header", ErrCorruption, len(data))
	}
	if string(data[0:4]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruption, data[0:4])
	}
	if data[4] != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruption, data[4])
	}

	r := &Reader{numKeys: binary.LittleEndian.Uint64(data[5:13])}
	r.filter.Seed = binary.LittleEndian.Uint64(data[13:21])
	r.filter.SegmentLength = binary.LittleEndian.Uint32(data[21:25])
	r.filter.SegmentLengthMask = binary.LittleEndian.Uint32(data[25:29])
	r.filter.SegmentCount = binary.LittleEndian.Uint32(data[29:33])
	r.filter.SegmentCountLength = binary.LittleEndian.Uint32(data[33:37])
	r.filter.Fingerprints = data[headerSize:]
	return r, nil
}

// NumKeys returns the number of keys the filter was built from.
func (r *Reader) NumKeys() uint64 { return r.numKeys }

// MayContainKey reports whether the encoded key may be present.
// A false result is definitive absence.
func (r *Reader) MayContainKey(encodedKey []byte) bool {
	return r.filter.Contains(HashKey(encodedKey))
}

// MayContainHash is MayContainKey for a pre-computed hash.
func (r *Reader) MayContainHash(hash uint64) bool {
	return r.filter.Contains(hash)
}
