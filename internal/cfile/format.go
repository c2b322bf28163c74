// Package cfile implements the single-column encoded file underlying a
// rowset: a run of compressed data blocks, a block index, and a footer.
// Files are write-once; readers are safe for concurrent use and iterators
// position themselves privately over a shared reader.
package cfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// File layout:
//
//	[data block]* [block index] [footer]
//
// Each data block is a compression.CompressBlock frame holding the column
// encoding of up to blockRows consecutive values. The block index records,
// per block, the file offset and row count (uvarint pairs), followed by the
// encoded first value of each block when the file carries a value index.
// The footer is fixed-size and sits at the end of the file so a reader can
// locate everything with two positioned reads.

const (
	// Magic terminates every column file.
	Magic = "CFL1"

	// FormatVersion is bumped on incompatible layout changes.
	FormatVersion = 1

	// footerSize is the byte size of the fixed footer region.
	// indexOffset(8) + indexSize(4) + indexHash(8) + numRows(8) +
	// numBlocks(4) + dataType(1) + flags(1) + version(1) + magic(4)
	footerSize = 39

	flagValueIndex = 0x01
)

// DefaultBlockRows is the number of values per data block when the writer
// is not configured otherwise.
const DefaultBlockRows = 8192

var (
	// ErrCorruption reports a malformed or inconsistent column file.
	ErrCorruption = errors.New("cfile: corrupted file")

	// ErrNotFound reports a value-index search past the last row.
	ErrNotFound = errors.New("cfile: value not found")

	// ErrNoValueIndex reports a value search on a file written without one.
	ErrNoValueIndex = errors.New("cfile: file has no value index")
)

// footer is the decoded fixed footer region.
type footer struct {
	indexOffset uint64
	indexSize   uint32
	indexHash   uint64
	numRows     uint64
	numBlocks   uint32
	dataType    uint8
	flags       uint8
	version     uint8
}

func (f *footer) hasValueIndex() bool { return f.flags&flagValueIndex != 0 }

func (f *footer) encode() []byte {
	buf := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(buf[0:8], f.indexOffset)
	binary.LittleEndian.PutUint32(buf[8:12], f.indexSize)
	binary.LittleEndian.PutUint64(buf[12:20], f.indexHash)
	binary.LittleEndian.PutUint64(buf[20:28], f.numRows)
	binary.LittleEndian.PutUint32(buf[28:32], f.numBlocks)
	buf[32] = f.dataType
	buf[33] = f.flags
	buf[34] = f.version
	copy(buf[35:39], Magic)
	return buf
}

func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) != footerSize {
		return nil, fmt.Errorf("%w: footer is %d bytes, want %d", ErrCorruption, len(buf), footerSize)
	}
	if string(buf[35:39]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruption, buf[35:39])
	}
	f := &footer{
		indexOffset: binary.LittleEndian.Uint64(buf[0:8]),
		indexSize:   binary.LittleEndian.Uint32(buf[8:12]),
		indexHash:   binary.LittleEndian.Uint64(buf[12:20]),
		numRows:     binary.LittleEndian.Uint64(buf[20:28]),
		numBlocks:   binary.LittleEndian.Uint32(buf[28:32]),
		dataType:    buf[32],
		flags:       buf[33],
		version:     buf[34],
	}
	if f.version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruption, f.version)
	}
	return f, nil
}

// Mark locates one data block within the file.
type Mark struct {
	Offset   uint64 // byte offset of the compressed block
	Rows     uint32 // values encoded in the block
	FirstRow int    // ordinal of the block's first row (derived, not stored)
}

// IOStatistics counts the disk traffic of a single iterator.
type IOStatistics struct {
	BlocksRead int
	BytesRead  int64
}
