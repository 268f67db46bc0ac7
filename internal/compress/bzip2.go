package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// bzip2Codec compresses blob payloads with bz2. Go's standard library
// only ships a bzip2 reader (see compress/bzip2 upstream), so writing
// bz2 output requires a third-party encoder; dsnet/compress/bzip2 is
// the pure-Go option the corpus already reaches for when stdlib falls
// short on a write path.
type bzip2Codec struct{}

func (bzip2Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("bzip2 compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing bzip2 writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (bzip2Codec) Decompress(data []byte, originalSize uint64) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	out := bytes.NewBuffer(make([]byte, 0, originalSize))
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("bzip2 decompression failed: %w", err)
	}
	return out.Bytes(), nil
}
