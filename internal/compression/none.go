package compression

import "fmt"

// NoneCodec stores blocks uncompressed.
type NoneCodec struct{}

func (c *NoneCodec) MethodByte() byte { return MethodNone }

func (c *NoneCodec) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst, nil
}

func (c *NoneCodec) Decompress(src []byte, decompressedSize int) ([]byte, error) {
	if len(src) != decompressedSize {
		return nil, fmt.Errorf("uncompressed block size mismatch: header says %d, have %d",
			decompressedSize, len(src))
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst, nil
}
