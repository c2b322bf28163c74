package rowset

import (
	"fmt"

	"github.com/mathsigit/kudu/internal/bloomfile"
	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/types"
)

// KeyProbe pairs a raw key value with its cached binary encoding and filter
// hash, so a single lookup can probe the existence filter and binary-search
// the key column without re-encoding. Probes are ephemeral value objects.
type KeyProbe struct {
	dt      types.DataType
	key     types.Value
	encoded []byte
	hash    uint64
}

// NewKeyProbe encodes the key once and caches the derived forms.
func NewKeyProbe(dt types.DataType, key types.Value) (*KeyProbe, error) {
	enc, err := column.EncodeValueBytes(dt, key)
	if err != nil {
		return nil, fmt.Errorf("encoding probe key: %w", err)
	}
	return &KeyProbe{
		dt:      dt,
		key:     key,
		encoded: enc,
		hash:    bloomfile.HashKey(enc),
	}, nil
}

// Key returns the raw key value.
func (p *KeyProbe) Key() types.Value { return p.key }

// EncodedKey returns the key's binary encoding.
func (p *KeyProbe) EncodedKey() []byte { return p.encoded }

// Hash returns the key's existence-filter hash.
func (p *KeyProbe) Hash() uint64 { return p.hash }
