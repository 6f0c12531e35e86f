package backends

import (
	"encoding/base64"

	"github.com/klauspost/compress/zstd"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// EncodeValue compresses and base64-url encodes a serialized cache value.
// Cached site snapshots and license entries are stored in this form so any
// backend can hold them as a plain string.
func EncodeValue(raw []byte) string {
	b := enc.EncodeAll(raw, make([]byte, 0, len(raw)))
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeValue reverses EncodeValue.
func DecodeValue(in string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return []byte{}, err
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return []byte{}, err
	}
	return out, nil
}
