package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/scigolib/bsdf/internal/utils"
)

// WriteInt16 writes a two-byte little-endian signed integer payload.
func WriteInt16(w io.Writer, v int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt16 reads a two-byte little-endian signed integer payload.
func ReadInt16(r io.Reader) (int16, error) {
	buf := utils.GetBuffer(2)
	defer utils.ReleaseBuffer(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf)), nil
}

// WriteInt64 writes an eight-byte little-endian signed integer payload.
func WriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt64 reads an eight-byte little-endian signed integer payload.
func ReadInt64(r io.Reader) (int64, error) {
	buf := utils.GetBuffer(8)
	defer utils.ReleaseBuffer(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// WriteFloat32 writes a four-byte little-endian IEEE 754 payload.
func WriteFloat32(w io.Writer, v float32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadFloat32 reads a four-byte little-endian IEEE 754 payload.
func ReadFloat32(r io.Reader) (float32, error) {
	buf := utils.GetBuffer(4)
	defer utils.ReleaseBuffer(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

// WriteFloat64 writes an eight-byte little-endian IEEE 754 payload.
func WriteFloat64(w io.Writer, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadFloat64 reads an eight-byte little-endian IEEE 754 payload.
func ReadFloat64(r io.Reader) (float64, error) {
	buf := utils.GetBuffer(8)
	defer utils.ReleaseBuffer(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// WriteString writes a LenCodec-prefixed UTF-8 string payload.
func WriteString(w io.Writer, s string) error {
	data := []byte(s)
	if err := WriteLen(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadString reads a LenCodec-prefixed UTF-8 string payload, bounding
// the claimed length against utils.MaxStringSize before allocating.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadLen(r)
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}
	if err := utils.ValidateBufferSize(n, utils.MaxStringSize, "string"); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading string payload: %w", err)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("string payload is not valid utf-8")
	}
	return string(buf), nil
}
