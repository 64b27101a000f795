// Package codec provides the default value compression for durable tiers.
package codec

import (
	"github.com/klauspost/compress/zstd"

	"github.com/tiercache/tiercache/pkg/errors"
)

// Zstd compresses values with zstandard. Values below MinSize, and values
// that do not shrink, are stored raw: Compress reports false and the engine
// keeps the original bytes.
type Zstd struct {
	minSize int64
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// NewZstd creates a codec. level maps to zstd encoder levels 1-4
// (fastest..best); out-of-range values fall back to the default level.
func NewZstd(minSize int64, level int) (*Zstd, error) {
	encLevel := zstd.SpeedDefault
	if level >= 1 && level <= 4 {
		encLevel = zstd.EncoderLevel(level)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCodecFailure, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCodecFailure, "failed to create zstd decoder")
	}

	return &Zstd{minSize: minSize, enc: enc, dec: dec}, nil
}

// Compress returns the compressed bytes and true, or the input and false
// when compression is skipped or unprofitable.
func (z *Zstd) Compress(data []byte) ([]byte, bool) {
	if int64(len(data)) < z.minSize {
		return data, false
	}
	compressed := z.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	if len(compressed) >= len(data) {
		return data, false
	}
	return compressed, true
}

// Decompress inflates a value previously compressed by this codec.
func (z *Zstd) Decompress(data []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCodecFailure, "zstd decompression failed").
			WithComponent("codec").WithOperation("decompress")
	}
	return out, nil
}

// Name identifies the codec in logs and persisted metadata.
func (z *Zstd) Name() string {
	return "zstd"
}
