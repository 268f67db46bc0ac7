package core

import (
	"fmt"
	"io"

	"github.com/scigolib/bsdf/internal/utils"
)

// Compression identifies the byte stored in a blob header's
// compression field. The wire values are fixed by the format; a
// decoder encountering any other byte must reject the blob.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZlib Compression = 1
	CompressionBZ2  Compression = 2
)

func (c Compression) valid() bool {
	switch c {
	case CompressionNone, CompressionZlib, CompressionBZ2:
		return true
	default:
		return false
	}
}

const checksumFlagPresent = 0xFF
const checksumFlagAbsent = 0x00

// Sink is the minimal write destination a blob writer needs: ordinary
// byte writes plus the current absolute offset, used to compute the
// alignment filler that keeps an uncompressed blob's payload on an
// 8-byte boundary.
type Sink interface {
	io.Writer
	Tell() (int64, error)
}

// BlobHeader is the decoded form of a blob's fixed-layout header,
// everything before the (possibly compressed) payload bytes.
type BlobHeader struct {
	AllocatedSize uint64
	UsedSize      uint64
	DataSize      uint64
	Compression   Compression
	Checksum      *[16]byte
	Alignment     uint8
}

// WriteBlob writes a complete blob: header followed by payload
// (already compressed by the caller if Compression != CompressionNone)
// followed by any extra allocated-but-unused padding.
//
// dataSize is the uncompressed byte length recorded in the header;
// for CompressionNone it always equals len(payload). extraSize grows
// allocated_size beyond used_size, reserving headroom for a LazyBlob
// to later grow into without reallocating the file.
//
// Alignment is only meaningful for uncompressed blobs: compressed
// payloads have no fixed element width for a reader to exploit, so the
// format does not pad them.
func WriteBlob(w Sink, payload []byte, dataSize, extraSize uint64, compression Compression, digest *[16]byte) error {
	if !compression.valid() {
		return fmt.Errorf("invalid compression identifier %d", compression)
	}
	usedSize := uint64(len(payload))
	allocatedSize := usedSize + extraSize

	if err := WriteLen(w, allocatedSize); err != nil {
		return err
	}
	if err := WriteLen(w, usedSize); err != nil {
		return err
	}
	if err := WriteLen(w, dataSize); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(compression)}); err != nil {
		return err
	}

	if digest != nil {
		if _, err := w.Write([]byte{checksumFlagPresent}); err != nil {
			return err
		}
		if _, err := w.Write(digest[:]); err != nil {
			return err
		}
	} else {
		if _, err := w.Write([]byte{checksumFlagAbsent}); err != nil {
			return err
		}
	}

	var alignment uint8
	if compression == CompressionNone {
		pos, err := w.Tell()
		if err != nil {
			return err
		}
		// +1 accounts for the alignment-count byte written next, so the
		// byte immediately following it lands on an 8-byte boundary.
		// Reduced mod 8 so a position already aligned yields 0 filler
		// bytes rather than a full 8.
		alignment = uint8((8 - (pos+1)%8) % 8)
	}
	if _, err := w.Write([]byte{alignment}); err != nil {
		return err
	}
	if alignment > 0 {
		if _, err := w.Write(make([]byte, alignment)); err != nil {
			return err
		}
	}

	if _, err := w.Write(payload); err != nil {
		return err
	}
	if extraSize > 0 {
		if _, err := w.Write(make([]byte, extraSize)); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlobHeader reads and validates a blob header, leaving r
// positioned at the first byte of the (possibly compressed) payload.
func ReadBlobHeader(r io.Reader) (*BlobHeader, error) {
	allocatedSize, err := ReadLen(r)
	if err != nil {
		return nil, fmt.Errorf("reading blob allocated_size: %w", err)
	}
	if err := utils.ValidateBufferSize(allocatedSize, utils.MaxBlobSize, "blob allocated_size"); err != nil {
		return nil, err
	}

	usedSize, err := ReadLen(r)
	if err != nil {
		return nil, fmt.Errorf("reading blob used_size: %w", err)
	}
	if usedSize > allocatedSize {
		return nil, fmt.Errorf("blob used_size %d exceeds allocated_size %d", usedSize, allocatedSize)
	}

	dataSize, err := ReadLen(r)
	if err != nil {
		return nil, fmt.Errorf("reading blob data_size: %w", err)
	}

	var compByte [1]byte
	if _, err := io.ReadFull(r, compByte[:]); err != nil {
		return nil, fmt.Errorf("reading blob compression byte: %w", err)
	}
	compression := Compression(compByte[0])
	if !compression.valid() {
		return nil, fmt.Errorf("unknown compression identifier %d", compByte[0])
	}

	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return nil, fmt.Errorf("reading blob checksum flag: %w", err)
	}
	var checksum *[16]byte
	switch flagByte[0] {
	case checksumFlagAbsent:
	case checksumFlagPresent:
		var digest [16]byte
		if _, err := io.ReadFull(r, digest[:]); err != nil {
			return nil, fmt.Errorf("reading blob checksum: %w", err)
		}
		checksum = &digest
	default:
		return nil, fmt.Errorf("invalid checksum flag %d", flagByte[0])
	}

	var alignByte [1]byte
	if _, err := io.ReadFull(r, alignByte[:]); err != nil {
		return nil, fmt.Errorf("reading blob alignment byte: %w", err)
	}
	alignment := alignByte[0]
	if alignment > 0 {
		filler := make([]byte, alignment)
		if _, err := io.ReadFull(r, filler); err != nil {
			return nil, fmt.Errorf("reading blob alignment padding: %w", err)
		}
	}

	return &BlobHeader{
		AllocatedSize: allocatedSize,
		UsedSize:      usedSize,
		DataSize:      dataSize,
		Compression:   compression,
		Checksum:      checksum,
		Alignment:     alignment,
	}, nil
}

// ReadBlobPayload reads the used_size payload bytes described by hdr
// and skips the remaining allocated-but-unused padding, leaving r
// positioned immediately after the blob. The returned bytes are the
// raw (possibly still compressed) payload; decompression and checksum
// verification happen above this package.
func ReadBlobPayload(r io.Reader, hdr *BlobHeader) ([]byte, error) {
	payload := make([]byte, hdr.UsedSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading blob payload: %w", err)
	}
	if pad := hdr.AllocatedSize - hdr.UsedSize; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return nil, fmt.Errorf("skipping blob trailing padding: %w", err)
		}
	}
	return payload, nil
}

// BlobHeaderWidth returns the byte width of a blob header with the
// given field sizes and checksum presence, used by LazyBlob to compute
// absolute payload offsets without re-reading the header.
func BlobHeaderWidth(allocatedSize, usedSize, dataSize uint64, hasChecksum bool, alignment uint8) int {
	width := LenWidth(allocatedSize) + LenWidth(usedSize) + LenWidth(dataSize)
	width += 1 // compression byte
	width += 1 // checksum flag byte
	if hasChecksum {
		width += 16
	}
	width += 1 // alignment byte
	width += int(alignment)
	return width
}
