package compression

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockRoundtripLZ4(t *testing.T) {
	data := bytes.Repeat([]byte("columnar storage "), 500)

	block, err := CompressBlock(&LZ4Codec{}, data)
	require.NoError(t, err)
	require.Equal(t, MethodLZ4, block[0])
	require.Less(t, len(block), len(data))

	out, err := DecompressBlock(block)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestBlockIncompressibleFallsBackToNone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 4096)
	_, err := rng.Read(data)
	require.NoError(t, err)

	block, err := CompressBlock(&LZ4Codec{}, data)
	require.NoError(t, err)
	require.Equal(t, MethodNone, block[0], "random data must be stored raw")
	require.Equal(t, HeaderSize+len(data), len(block))

	out, err := DecompressBlock(block)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestBlockRoundtripNone(t *testing.T) {
	data := []byte("short payload")

	block, err := CompressBlock(&NoneCodec{}, data)
	require.NoError(t, err)
	require.Equal(t, MethodNone, block[0])

	out, err := DecompressBlock(block)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestBlockRoundtripEmpty(t *testing.T) {
	block, err := CompressBlock(&LZ4Codec{}, nil)
	require.NoError(t, err)

	out, err := DecompressBlock(block)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDecompressBlockErrors(t *testing.T) {
	_, err := DecompressBlock([]byte{1, 2, 3})
	require.Error(t, err, "truncated header")

	block, err := CompressBlock(&LZ4Codec{}, bytes.Repeat([]byte("x"), 1000))
	require.NoError(t, err)

	_, err = DecompressBlock(block[:len(block)-1])
	require.Error(t, err, "truncated payload")

	bad := append([]byte(nil), block...)
	bad[0] = 0x7f
	_, err = DecompressBlock(bad)
	require.Error(t, err, "unknown method byte")
}

func TestReadBlockHeader(t *testing.T) {
	data := []byte("header test data")
	block, err := CompressBlock(&NoneCodec{}, data)
	require.NoError(t, err)

	total, uncompressed, err := ReadBlockHeader(block)
	require.NoError(t, err)
	require.Equal(t, uint32(len(block)), total)
	require.Equal(t, uint32(len(data)), uncompressed)

	_, _, err = ReadBlockHeader(block[:4])
	require.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "lz4"} {
		c, err := CodecByName(name)
		require.NoError(t, err)
		require.Equal(t, MethodLZ4, c.MethodByte())
	}
	c, err := CodecByName("none")
	require.NoError(t, err)
	require.Equal(t, MethodNone, c.MethodByte())

	_, err = CodecByName("zstd")
	require.Error(t, err)
}
