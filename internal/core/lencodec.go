// Package core implements the low-level BSDF wire codecs: the
// variable-length size encoding, the single-byte type tags, the
// fixed-width primitive layouts, container headers, and the blob
// sub-format. It has no knowledge of the Value tree assembled on top
// of it in the root package — each function here reads or writes one
// self-contained piece of the wire format.
package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Length marker bytes. A LenCodec field is a single byte for values up
// to MaxDirectLen; marker64 signals an 8-byte little-endian value
// follows. Markers 251/252 are reserved and must be rejected wherever
// they're encountered. 254/255 are valid only as the leading byte of a
// list header (closed-stream / open-stream), never in a plain size
// position such as a string length or map entry count.
const (
	lenMarkerReserved1 = 251
	lenMarkerReserved2 = 252
	lenMarker64        = 253

	// StreamClosed marks a finalized list-stream header; the trailing
	// 8-byte count is the final element count.
	StreamClosed = 254

	// StreamOpen marks an appendable list-stream header; the trailing
	// 8-byte count is 0 while open. A nonzero count under this marker
	// is read as a finalized count. ListStream.Close rewrites the
	// header with StreamClosed.
	StreamOpen = 255
)

// MaxDirectLen is the largest value a single-byte LenCodec field holds.
const MaxDirectLen = 250

// WriteLen encodes n as a BSDF size field.
func WriteLen(w io.Writer, n uint64) error {
	if n <= MaxDirectLen {
		_, err := w.Write([]byte{byte(n)})
		return err
	}
	var buf [9]byte
	buf[0] = lenMarker64
	binary.LittleEndian.PutUint64(buf[1:], n)
	_, err := w.Write(buf[:])
	return err
}

// ReadLen decodes a BSDF size field from a plain size position
// (string byte length, map entry count, blob sizes). It rejects the
// reserved markers and the stream markers, which are only meaningful
// as the leading byte of a list header.
func ReadLen(r io.Reader) (uint64, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	switch b[0] {
	case lenMarker64:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf[:]), nil
	case lenMarkerReserved1, lenMarkerReserved2:
		return 0, fmt.Errorf("reserved length marker %d", b[0])
	case StreamClosed, StreamOpen:
		return 0, fmt.Errorf("unexpected stream marker %d in a size position", b[0])
	default:
		return uint64(b[0]), nil
	}
}

// LenWidth returns the number of bytes WriteLen would emit for n,
// without writing anything. Used by callers that need to predict a
// header's size before laying it out (e.g. alignment computation).
func LenWidth(n uint64) int {
	if n <= MaxDirectLen {
		return 1
	}
	return 9
}
