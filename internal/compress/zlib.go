package compress

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// zlibCodec compresses blob payloads with stdlib DEFLATE/zlib,
// matching the reference implementation's use of Python's zlib module
// for its "zlib" compression option.
type zlibCodec struct{}

func (zlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(data []byte, originalSize uint64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	out := make([]byte, 0, originalSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	return buf.Bytes(), nil
}
