package compression

import (
	"encoding/binary"
	"fmt"
)

// Compressed block format:
//
//	[method_byte (1)] [compressed_size_with_header (4 LE)] [uncompressed_size (4 LE)] [payload...]
//
// compressed_size_with_header includes the 9-byte header itself.

const HeaderSize = 9

// CompressBlock compresses data and returns the full block (header + payload).
// When the codec cannot shrink the data, the block is written with MethodNone
// so that decompression never sees a bogus payload.
func CompressBlock(codec Codec, data []byte) ([]byte, error) {
	compressed, err := codec.Compress(data)
	if err != nil {
		return nil, err
	}

	method := codec.MethodByte()
	if compressed == nil || len(compressed) >= len(data) {
		method = MethodNone
		compressed = data
	}

	totalSize := HeaderSize + len(compressed)
	block := make([]byte, totalSize)
	block[0] = method
	binary.LittleEndian.PutUint32(block[1:5], uint32(totalSize))
	binary.LittleEndian.PutUint32(block[5:9], uint32(len(data)))
	copy(block[HeaderSize:], compressed)

	return block, nil
}

// DecompressBlock reads a compressed block, validates the header, and decompresses.
func DecompressBlock(data []byte) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("compressed block too small: %d bytes", len(data))
	}

	method := data[0]
	compressedSizeWithHeader := binary.LittleEndian.Uint32(data[1:5])
	uncompressedSize := binary.LittleEndian.Uint32(data[5:9])

	if int(compressedSizeWithHeader) > len(data) {
		return nil, fmt.Errorf("compressed block size mismatch: header says %d, have %d",
			compressedSizeWithHeader, len(data))
	}

	codec, err := CodecForMethod(method)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(data[HeaderSize:compressedSizeWithHeader], int(uncompressedSize))
}

// ReadBlockHeader reads the header of a compressed block and returns
// (compressedSizeWithHeader, uncompressedSize, error).
func ReadBlockHeader(data []byte) (compressedTotal uint32, uncompressed uint32, err error) {
	if len(data) < HeaderSize {
		return 0, 0, fmt.Errorf("not enough data for block header")
	}
	compressedTotal = binary.LittleEndian.Uint32(data[1:5])
	uncompressed = binary.LittleEndian.Uint32(data[5:9])
	return compressedTotal, uncompressed, nil
}
