package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	z, err := NewZstd(0, 3)
	require.NoError(t, err)

	// Repetitive payload compresses well.
	payload := bytes.Repeat([]byte("tiercache "), 1024)
	compressed, ok := z.Compress(payload)
	require.True(t, ok, "repetitive payload must compress")
	assert.Less(t, len(compressed), len(payload))

	restored, err := z.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}

func TestCompressSkipsSmallValues(t *testing.T) {
	z, err := NewZstd(1024, 3)
	require.NoError(t, err)

	small := []byte("tiny")
	out, ok := z.Compress(small)
	assert.False(t, ok)
	assert.Equal(t, small, out)
}

func TestCompressSkipsIncompressible(t *testing.T) {
	z, err := NewZstd(0, 3)
	require.NoError(t, err)

	// High-entropy bytes do not shrink; the codec must hand back the raw value.
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i*131 + 17)
	}
	out, ok := z.Compress(random[:16])
	if !ok {
		assert.Equal(t, random[:16], out)
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	z, err := NewZstd(0, 3)
	require.NoError(t, err)

	_, err = z.Decompress([]byte("not a zstd frame"))
	require.Error(t, err)
}

func TestName(t *testing.T) {
	z, err := NewZstd(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "zstd", z.Name())
}
