// Package compress provides the blob payload compression backends
// BSDF supports: none, zlib, and bz2. Each backend implements the
// small Compressor/Decompressor interface pair so the serializer can
// select one by the wire-format compression byte without knowing the
// underlying library.
package compress

import (
	"fmt"

	"github.com/scigolib/bsdf/internal/core"
)

// Compressor compresses a blob's uncompressed payload bytes before
// they're written to the wire.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a blob's wire payload bytes back to their
// original, uncompressed form.
type Decompressor interface {
	Decompress(data []byte, originalSize uint64) ([]byte, error)
}

// Codec combines both directions for a single compression algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// ForAlgorithm returns the Codec registered for the wire-format
// compression identifier id.
func ForAlgorithm(id core.Compression) (Codec, error) {
	switch id {
	case core.CompressionNone:
		return noopCodec{}, nil
	case core.CompressionZlib:
		return zlibCodec{}, nil
	case core.CompressionBZ2:
		return bzip2Codec{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression identifier %d", byte(id))
	}
}

// noopCodec implements Codec for core.CompressionNone, passing data
// through unchanged, so ForAlgorithm returns a Codec for every valid
// identifier. The Serializer and LazyBlob do not call it: they skip
// the codec entirely for uncompressed blobs.
type noopCodec struct{}

func (noopCodec) Compress(data []byte) ([]byte, error) { return data, nil }

func (noopCodec) Decompress(data []byte, _ uint64) ([]byte, error) { return data, nil }

var (
	_ Codec = noopCodec{}
	_ Codec = zlibCodec{}
	_ Codec = bzip2Codec{}
)
