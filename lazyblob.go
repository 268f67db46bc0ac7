package bsdf

import (
	"crypto/md5" //nolint:gosec // format-mandated checksum algorithm, not used for security
	"io"

	"github.com/scigolib/bsdf/internal/compress"
	"github.com/scigolib/bsdf/internal/core"
)

// LazyBlob is a file-backed handle to a blob's bytes, returned by
// decode in place of a materialized []byte when WithLazyBlobs is set.
// It borrows the underlying file for the remainder of the file's
// lifetime: after decode returns a value containing a LazyBlob,
// further reads of that blob's region must go through the handle, not
// through the file directly.
type LazyBlob struct {
	backing        RandomAccess
	payloadStart   int64
	usedSize       uint64
	allocatedSize  uint64
	dataSize       uint64
	compression    core.Compression
	checksumOffset int64 // -1 when the blob has no checksum field
	writable       bool

	pos   int64
	dirty bool
}

func newLazyBlob(backing RandomAccess, hdr *core.BlobHeader, payloadStart, checksumOffset int64, writable bool) *LazyBlob {
	return &LazyBlob{
		backing:        backing,
		payloadStart:   payloadStart,
		usedSize:       hdr.UsedSize,
		allocatedSize:  hdr.AllocatedSize,
		dataSize:       hdr.DataSize,
		compression:    hdr.Compression,
		checksumOffset: checksumOffset,
		writable:       writable,
	}
}

// Tell returns the handle's current position within [0, used_size].
func (b *LazyBlob) Tell() int64 {
	return b.pos
}

// Seek repositions the handle. A negative p is measured from the end
// of the payload (used_size + p); any other out-of-range position
// fails with BoundsError.
func (b *LazyBlob) Seek(p int64) error {
	if p < 0 {
		p += int64(b.usedSize)
	}
	if p < 0 || p > int64(b.usedSize) {
		return boundsError("LazyBlob.Seek position out of bounds")
	}
	b.pos = p
	return nil
}

// Read reads exactly n bytes starting at the current position and
// advances it. Only valid on an uncompressed blob — random access into
// compressed bytes is meaningless without decompressing the whole
// payload, which Read does not do.
func (b *LazyBlob) Read(n int) ([]byte, error) {
	if b.compression != core.CompressionNone {
		return nil, unsupportedError("LazyBlob.Read is not supported on a compressed blob")
	}
	if n < 0 || b.pos+int64(n) > int64(b.usedSize) {
		return nil, boundsError("LazyBlob.Read would extend past used_size")
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := b.backing.ReadAt(buf, b.payloadStart+b.pos); err != nil && err != io.EOF {
			return nil, ioError("LazyBlob.Read", err)
		}
	}
	b.pos += int64(n)
	return buf, nil
}

// Write overwrites n bytes at the current position and advances it,
// marking the handle dirty so Close refreshes the checksum. Only
// valid when the backing file was opened for update and the blob is
// uncompressed.
func (b *LazyBlob) Write(data []byte) error {
	if !b.writable {
		return unsupportedError("LazyBlob.Write requires the file to be opened for update")
	}
	if b.compression != core.CompressionNone {
		return unsupportedError("LazyBlob.Write is not supported on a compressed blob")
	}
	if b.pos+int64(len(data)) > int64(b.usedSize) {
		return boundsError("LazyBlob.Write would extend past used_size")
	}
	if _, err := b.backing.WriteAt(data, b.payloadStart+b.pos); err != nil {
		return ioError("LazyBlob.Write", err)
	}
	b.pos += int64(len(data))
	b.dirty = true
	return nil
}

// GetBytes returns the blob's full logical payload, decompressing it
// first if the blob was written with compression.
func (b *LazyBlob) GetBytes() ([]byte, error) {
	raw := make([]byte, b.usedSize)
	if b.usedSize > 0 {
		if _, err := b.backing.ReadAt(raw, b.payloadStart); err != nil && err != io.EOF {
			return nil, ioError("LazyBlob.GetBytes", err)
		}
	}
	if b.compression == core.CompressionNone {
		return raw, nil
	}
	codec, err := compress.ForAlgorithm(b.compression)
	if err != nil {
		return nil, formatError("LazyBlob.GetBytes: unknown compression", err)
	}
	out, err := codec.Decompress(raw, b.dataSize)
	if err != nil {
		return nil, formatError("LazyBlob.GetBytes: decompression failed", err)
	}
	return out, nil
}

// Close, if the handle was written through, recomputes the MD5
// checksum over the current used_size bytes and rewrites it at its
// known file offset. A no-op if the blob has no checksum field or the
// handle was never written to.
func (b *LazyBlob) Close() error {
	if !b.dirty || b.checksumOffset < 0 {
		return nil
	}
	raw := make([]byte, b.usedSize)
	if b.usedSize > 0 {
		if _, err := b.backing.ReadAt(raw, b.payloadStart); err != nil && err != io.EOF {
			return ioError("LazyBlob.Close: reading payload to refresh checksum", err)
		}
	}
	digest := md5.Sum(raw)
	if _, err := b.backing.WriteAt(digest[:], b.checksumOffset); err != nil {
		return ioError("LazyBlob.Close: rewriting checksum", err)
	}
	b.dirty = false
	return nil
}
