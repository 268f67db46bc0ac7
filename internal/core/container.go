package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ListKind distinguishes the three shapes a list header can take:
// a plain closed list, an appendable open stream, and a stream that
// was opened and later finalized in place.
type ListKind int

const (
	ListClosed ListKind = iota
	ListStreamOpen
	ListStreamClosed
)

// ReadListMarker reads a list's leading header byte (and, for a
// 64-bit-width or stream header, the trailing 8-byte count) and
// classifies it. Only a list header's leading byte may carry the
// 254/255 stream markers; ReadLen rejects them everywhere else.
func ReadListMarker(r io.Reader) (ListKind, uint64, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, 0, err
	}
	switch b[0] {
	case StreamOpen, StreamClosed:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		count := binary.LittleEndian.Uint64(buf[:])
		if b[0] == StreamOpen {
			return ListStreamOpen, count, nil
		}
		return ListStreamClosed, count, nil
	case lenMarker64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		return ListClosed, binary.LittleEndian.Uint64(buf[:]), nil
	case lenMarkerReserved1, lenMarkerReserved2:
		return 0, 0, fmt.Errorf("reserved list length marker %d", b[0])
	default:
		return ListClosed, uint64(b[0]), nil
	}
}

// WriteListHeader writes a plain closed-list header (LenCodec count,
// no stream semantics).
func WriteListHeader(w io.Writer, count uint64) error {
	return WriteLen(w, count)
}

// WriteStreamHeader writes a list-stream header: marker byte (255 for
// open, 254 for closed) followed by an 8-byte little-endian count.
// Used both for the initial open-stream write and, seeked back to the
// recorded header offset, for ListStream.Close's in-place rewrite.
func WriteStreamHeader(w io.Writer, marker byte, count uint64) error {
	if marker != StreamOpen && marker != StreamClosed {
		return fmt.Errorf("invalid stream header marker %d", marker)
	}
	var buf [9]byte
	buf[0] = marker
	binary.LittleEndian.PutUint64(buf[1:], count)
	_, err := w.Write(buf[:])
	return err
}

// StreamHeaderWidth is the fixed width, in bytes, of a list-stream
// header (marker byte + 8-byte count). ListStream uses this to compute
// the file offset it must seek back to in order to rewrite the count.
const StreamHeaderWidth = 9

// WriteMapHeader writes a map's entry-count header.
func WriteMapHeader(w io.Writer, entryCount uint64) error {
	return WriteLen(w, entryCount)
}

// ReadMapHeader reads a map's entry-count header.
func ReadMapHeader(r io.Reader) (uint64, error) {
	return ReadLen(r)
}

// WriteMapKey writes a map entry's key: a LenCodec-prefixed UTF-8
// string, identical in wire shape to a base string value but without
// its own type tag.
func WriteMapKey(w io.Writer, key string) error {
	return WriteString(w, key)
}

// ReadMapKey reads a map entry's key.
func ReadMapKey(r io.Reader) (string, error) {
	return ReadString(r)
}
