package bsdf

import (
	"errors"
	"io"

	"github.com/scigolib/bsdf/internal/core"
)

type streamState int

const (
	streamUnbound streamState = iota
	streamActive
	streamClosed
	streamHardClosed
)

// ListStream is a write-side handle to an open-ended list. The caller
// constructs one with NewListStream and passes it into the value tree
// given to Encode/Save; the serializer writes the stream's header,
// binds the handle to the sink and the header's file offset, then
// hands control back. The caller drives the rest of the stream's
// lifetime directly through Append and Close.
//
// A ListStream may be used for exactly one encode call and must be the
// last value that encode call writes — the spec requires its open
// tail to coincide with EOF.
type ListStream struct {
	state       streamState
	sink        Sink
	countOffset int64
	count       uint64
	encodeValue func(Sink, Value) error
}

// NewListStream returns an unbound stream handle ready to be placed
// into a value tree passed to Encode or Save.
func NewListStream() *ListStream {
	return &ListStream{state: streamUnbound}
}

func (ls *ListStream) bind(sink Sink, countOffset int64, encodeValue func(Sink, Value) error) {
	ls.sink = sink
	ls.countOffset = countOffset
	ls.encodeValue = encodeValue
	ls.state = streamActive
}

// Count returns the number of elements appended so far.
func (ls *ListStream) Count() uint64 {
	return ls.count
}

// Append encodes v and writes it at the current end of the sink,
// incrementing the stream's element count. Valid from the Active and
// Closed states; invalid (and an error) from Unbound or HardClosed.
func (ls *ListStream) Append(v Value) error {
	switch ls.state {
	case streamActive, streamClosed:
	case streamUnbound:
		return structuralError("cannot append to a list stream that was never bound by encode/save")
	case streamHardClosed:
		return structuralError("cannot append to a hard-closed list stream")
	}
	if err := ls.encodeValue(ls.sink, v); err != nil {
		return err
	}
	ls.count++
	if ls.state == streamClosed {
		ls.state = streamActive
	}
	return nil
}

// Close finalizes the stream: it seeks back to the recorded header
// offset, rewrites the count with the closed-stream marker, then
// restores the sink's cursor to where it was before the seek. Passing
// hard=true additionally prevents any further Append.
//
// After a soft close, calling Close again after the same sequence of
// appends rewrites the identical count and marker. After a hard close,
// Close fails with StructuralError.
func (ls *ListStream) Close(hard bool) error {
	switch ls.state {
	case streamActive, streamClosed:
	case streamUnbound:
		return structuralError("cannot close a list stream that was never bound by encode/save")
	case streamHardClosed:
		return structuralError("list stream is already hard-closed")
	}

	pos, err := ls.sink.Tell()
	if err != nil {
		return ioError("reading sink cursor before stream close", err)
	}
	if _, err := ls.sink.Seek(ls.countOffset, io.SeekStart); err != nil {
		return ioError("seeking to stream count header", err)
	}
	if err := core.WriteStreamHeader(ls.sink, core.StreamClosed, ls.count); err != nil {
		return ioError("rewriting stream count header", err)
	}
	if _, err := ls.sink.Seek(pos, io.SeekStart); err != nil {
		return ioError("restoring sink cursor after stream close", err)
	}

	if hard {
		ls.state = streamHardClosed
	} else {
		ls.state = streamClosed
	}
	return nil
}

// StreamReader is a read-side handle to a list whose count was open
// (marker 255) or finalized (marker 254) at decode time, returned in
// place of an eagerly materialized []Value when WithStreaming is set.
type StreamReader struct {
	source      Source
	open        bool
	remaining   uint64
	done        bool
	decodeValue func(Source) (Value, error)
}

// Next decodes and returns the next element. The second return value
// is true once the stream is exhausted (EOF for an open stream, or the
// finalized count reached for a closed one), at which point the first
// return value is nil.
func (r *StreamReader) Next() (Value, bool, error) {
	if r.done {
		return nil, true, nil
	}
	if !r.open && r.remaining == 0 {
		r.done = true
		return nil, true, nil
	}
	v, err := r.decodeValue(r.source)
	if err != nil {
		if r.open && errors.Is(err, io.EOF) {
			r.done = true
			return nil, true, nil
		}
		return nil, false, err
	}
	if !r.open {
		r.remaining--
	}
	return v, false, nil
}
