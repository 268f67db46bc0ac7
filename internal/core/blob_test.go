package core

import (
	"bytes"
	"crypto/md5" //nolint:gosec // format-mandated checksum algorithm, not used for security
	"testing"

	"github.com/stretchr/testify/require"
)

// bufSink adapts a bytes.Buffer into the Sink interface for tests that
// need to observe the alignment computation, which depends on Tell().
type bufSink struct {
	bytes.Buffer
}

func (s *bufSink) Tell() (int64, error) {
	return int64(s.Len()), nil
}

func TestWriteReadBlob_Uncompressed_NoChecksum(t *testing.T) {
	var sink bufSink
	payload := []byte("hello blob")

	require.NoError(t, WriteBlob(&sink, payload, uint64(len(payload)), 0, CompressionNone, nil))

	hdr, err := ReadBlobHeader(&sink)
	require.NoError(t, err)
	require.Equal(t, uint64(len(payload)), hdr.UsedSize)
	require.Equal(t, uint64(len(payload)), hdr.AllocatedSize)
	require.Equal(t, CompressionNone, hdr.Compression)
	require.Nil(t, hdr.Checksum)

	got, err := ReadBlobPayload(&sink, hdr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteReadBlob_WithChecksum(t *testing.T) {
	var sink bufSink
	payload := []byte("checksummed payload")
	digest := md5.Sum(payload)

	require.NoError(t, WriteBlob(&sink, payload, uint64(len(payload)), 0, CompressionNone, &digest))

	hdr, err := ReadBlobHeader(&sink)
	require.NoError(t, err)
	require.NotNil(t, hdr.Checksum)
	require.Equal(t, digest, *hdr.Checksum)

	got, err := ReadBlobPayload(&sink, hdr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteBlob_ExtraSizeReservesPadding(t *testing.T) {
	var sink bufSink
	payload := []byte("xx")

	require.NoError(t, WriteBlob(&sink, payload, uint64(len(payload)), 6, CompressionNone, nil))

	hdr, err := ReadBlobHeader(&sink)
	require.NoError(t, err)
	require.Equal(t, uint64(2), hdr.UsedSize)
	require.Equal(t, uint64(8), hdr.AllocatedSize)

	got, err := ReadBlobPayload(&sink, hdr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, 0, sink.Len()) // padding consumed
}

func TestWriteBlob_AlignmentOnlyForUncompressed(t *testing.T) {
	var sink bufSink
	payload := []byte("compressed-looking-bytes")

	require.NoError(t, WriteBlob(&sink, payload, 1000, 0, CompressionZlib, nil))

	hdr, err := ReadBlobHeader(&sink)
	require.NoError(t, err)
	require.Equal(t, uint8(0), hdr.Alignment)
	require.Equal(t, CompressionZlib, hdr.Compression)
	require.Equal(t, uint64(1000), hdr.DataSize)
}

func TestWriteBlob_AlignmentKeepsPayloadOnEightByteBoundary(t *testing.T) {
	for prefixLen := 0; prefixLen < 16; prefixLen++ {
		var sink bufSink
		sink.Write(make([]byte, prefixLen))
		headerStart := sink.Len()

		payload := []byte("0123456789")
		require.NoError(t, WriteBlob(&sink, payload, uint64(len(payload)), 0, CompressionNone, nil))
		totalWritten := sink.Len() - headerStart

		full := sink.Bytes()[headerStart:]
		hdr, err := ReadBlobHeader(bytes.NewReader(full))
		require.NoError(t, err)
		require.Less(t, int(hdr.Alignment), 8)

		headerWidth := BlobHeaderWidth(hdr.AllocatedSize, hdr.UsedSize, hdr.DataSize, false, hdr.Alignment)
		payloadAbsOffset := headerStart + headerWidth
		require.Equal(t, 0, payloadAbsOffset%8)
		require.Equal(t, headerWidth+len(payload), totalWritten)
	}
}

func TestWriteBlob_RejectsInvalidCompression(t *testing.T) {
	var sink bufSink
	err := WriteBlob(&sink, []byte("x"), 1, 0, Compression(99), nil)
	require.Error(t, err)
}

func TestReadBlobHeader_RejectsUsedExceedingAllocated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLen(&buf, 2))  // allocated_size
	require.NoError(t, WriteLen(&buf, 10)) // used_size > allocated_size
	require.NoError(t, WriteLen(&buf, 10)) // data_size
	buf.WriteByte(byte(CompressionNone))
	buf.WriteByte(checksumFlagAbsent)
	buf.WriteByte(0)

	_, err := ReadBlobHeader(&buf)
	require.Error(t, err)
}

func TestReadBlobHeader_RejectsUnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLen(&buf, 2))
	require.NoError(t, WriteLen(&buf, 2))
	require.NoError(t, WriteLen(&buf, 2))
	buf.WriteByte(7) // unknown compression id
	buf.WriteByte(checksumFlagAbsent)
	buf.WriteByte(0)

	_, err := ReadBlobHeader(&buf)
	require.Error(t, err)
}

func TestReadBlobHeader_RejectsBadChecksumFlag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLen(&buf, 2))
	require.NoError(t, WriteLen(&buf, 2))
	require.NoError(t, WriteLen(&buf, 2))
	buf.WriteByte(byte(CompressionNone))
	buf.WriteByte(0x42) // not 0x00 or 0xFF

	_, err := ReadBlobHeader(&buf)
	require.Error(t, err)
}

func TestReadBlobHeader_RejectsHostileAllocatedSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLen(&buf, 1<<63))

	_, err := ReadBlobHeader(&buf)
	require.Error(t, err)
}

func TestBlobHeaderWidth_MatchesWrittenHeader(t *testing.T) {
	var sink bufSink
	payload := []byte("0123456789abcdef")
	digest := md5.Sum(payload)

	require.NoError(t, WriteBlob(&sink, payload, uint64(len(payload)), 3, CompressionNone, &digest))
	total := sink.Len()

	hdr, err := ReadBlobHeader(&sink)
	require.NoError(t, err)

	width := BlobHeaderWidth(hdr.AllocatedSize, hdr.UsedSize, hdr.DataSize, hdr.Checksum != nil, hdr.Alignment)
	require.Equal(t, total-sink.Len(), width)
}
