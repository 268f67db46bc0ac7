// Package writer provides the file-backed write destination used by the
// BSDF serializer: a thin wrapper around *os.File that tracks the write
// cursor and supports the random access a ListStream count-rewrite or a
// LazyBlob in-place edit needs.
//
// Unlike the HDF5 writer this package is descended from, BSDF has no
// free-space allocator: every value is appended sequentially at the
// current end of file, and the only writes that seek backwards patch
// bytes already laid out: a stream's count header, or a blob's payload
// and checksum edited through a LazyBlob. There is no block allocation
// scheme to track.
package writer

import (
	"fmt"
	"io"
	"os"
)

// CreateMode specifies the file creation behavior for OpenForWrite.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating it if it exists.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, failing if it already exists.
	ModeExclusive

	// ModeUpdate opens an existing file for read-write in place,
	// without truncating it. Used to reopen a file for LazyBlob edits.
	ModeUpdate
)

// FileSink wraps an *os.File as a write destination that also tracks
// its own cursor position, matching the "write(bytes) and tell()"
// capability set the BSDF spec requires of a save() sink.
//
// Thread-safety: not thread-safe. The caller must externally serialize
// access to a single FileSink, exactly as the spec's concurrency model
// requires.
type FileSink struct {
	file *os.File
}

// OpenForWrite opens filename according to mode and wraps it as a
// FileSink ready for Save() or LazyBlob edits.
func OpenForWrite(filename string, mode CreateMode) (*FileSink, error) {
	var f *os.File
	var err error

	switch mode {
	case ModeTruncate:
		f, err = os.Create(filename) //nolint:gosec // caller-provided path is intentional for a file-format library
	case ModeExclusive:
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666) //nolint:gosec
	case ModeUpdate:
		f, err = os.OpenFile(filename, os.O_RDWR, 0o666) //nolint:gosec
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("open for write failed: %w", err)
	}
	return &FileSink{file: f}, nil
}

// NewFileSink wraps an already-open file. Ownership of Close is the
// caller's.
func NewFileSink(f *os.File) *FileSink {
	return &FileSink{file: f}
}

// Write implements io.Writer.
func (s *FileSink) Write(p []byte) (int, error) {
	if s.file == nil {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.file.Write(p)
}

// Tell returns the current write cursor position.
func (s *FileSink) Tell() (int64, error) {
	if s.file == nil {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.file.Seek(0, io.SeekCurrent)
}

// Seek implements io.Seeker, used to rewrite a stream's count header
// or to reposition for a LazyBlob edit.
func (s *FileSink) Seek(offset int64, whence int) (int64, error) {
	if s.file == nil {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.file.Seek(offset, whence)
}

// ReadAt implements io.ReaderAt, so a FileSink doubles as the random
// access backing a LazyBlob when a file was opened for update.
func (s *FileSink) ReadAt(p []byte, off int64) (int, error) {
	if s.file == nil {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.file.ReadAt(p, off)
}

// WriteAt implements io.WriterAt, the other half of LazyBlob's random
// access requirement.
func (s *FileSink) WriteAt(p []byte, off int64) (int, error) {
	if s.file == nil {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.file.WriteAt(p, off)
}

// Flush commits buffered writes to durable storage.
func (s *FileSink) Flush() error {
	if s.file == nil {
		return fmt.Errorf("sink is closed")
	}
	return s.file.Sync()
}

// Close closes the underlying file. Safe to call multiple times.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// File returns the underlying *os.File for advanced use (e.g. handing
// it to a LazyBlob that outlives the FileSink wrapper).
func (s *FileSink) File() *os.File {
	return s.file
}

var (
	_ io.Writer   = (*FileSink)(nil)
	_ io.Seeker   = (*FileSink)(nil)
	_ io.ReaderAt = (*FileSink)(nil)
	_ io.WriterAt = (*FileSink)(nil)
)
