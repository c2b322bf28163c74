package compression

import "fmt"

// Codec compresses and decompresses data blocks.
type Codec interface {
	// MethodByte returns the single-byte codec identifier stored in the block header.
	MethodByte() byte
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, decompressedSize int) ([]byte, error)
}

// Method byte constants.
const (
	MethodNone byte = 0x02
	MethodLZ4  byte = 0x82
)

// CodecForMethod returns the codec registered for a method byte.
func CodecForMethod(method byte) (Codec, error) {
	switch method {
	case MethodLZ4:
		return &LZ4Codec{}, nil
	case MethodNone:
		return &NoneCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression method: 0x%02x", method)
	}
}

// CodecByName resolves a codec from its configuration name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "lz4", "":
		return &LZ4Codec{}, nil
	case "none":
		return &NoneCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %q", name)
	}
}
