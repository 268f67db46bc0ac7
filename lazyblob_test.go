package bsdf

import (
	"crypto/md5" //nolint:gosec // matches the format's checksum algorithm
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/bsdf/internal/core"
	bsdftesting "github.com/scigolib/bsdf/internal/testing"
)

// readOnlyBacking adapts a MockReaderAt to RandomAccess so a LazyBlob
// backed entirely by it can exercise the error path when the
// underlying store refuses a read, without needing a real file.
type readOnlyBacking struct {
	*bsdftesting.MockReaderAt
}

func (readOnlyBacking) WriteAt([]byte, int64) (int, error) {
	return 0, assert.AnError
}

func (readOnlyBacking) Seek(int64, int) (int64, error) {
	return 0, assert.AnError
}

func newTestLazyBlob(t *testing.T, payload []byte, writable bool) (*LazyBlob, *memSource) {
	t.Helper()
	backing := newMemSource(nil)
	_, err := backing.WriteAt(payload, 0)
	require.NoError(t, err)

	hdr := &core.BlobHeader{
		AllocatedSize: uint64(len(payload)),
		UsedSize:      uint64(len(payload)),
		DataSize:      uint64(len(payload)),
		Compression:   core.CompressionNone,
	}
	return newLazyBlob(backing, hdr, 0, -1, writable), backing
}

func TestLazyBlob_ReadWithinBounds(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("hello world"), false)

	got, err := lb.Read(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, int64(5), lb.Tell())
}

func TestLazyBlob_ReadPastUsedSizeFails(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("hi"), false)
	_, err := lb.Read(10)
	assert.True(t, Is(err, KindBounds))
}

func TestLazyBlob_SeekNegativeFromEnd(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("0123456789"), false)
	require.NoError(t, lb.Seek(-3))
	assert.Equal(t, int64(7), lb.Tell())
}

func TestLazyBlob_SeekOutOfRangeFails(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("abc"), false)
	assert.True(t, Is(lb.Seek(100), KindBounds))
	assert.True(t, Is(lb.Seek(-100), KindBounds))
}

func TestLazyBlob_WriteRequiresWritable(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("abc"), false)
	err := lb.Write([]byte("x"))
	assert.True(t, Is(err, KindUnsupported))
}

func TestLazyBlob_WriteUpdatesBackingStore(t *testing.T) {
	lb, backing := newTestLazyBlob(t, []byte("abcdef"), true)
	require.NoError(t, lb.Seek(2))
	require.NoError(t, lb.Write([]byte("XY")))

	got, err := lb.GetBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abXYef"), got)

	buf := make([]byte, 6)
	_, _ = backing.ReadAt(buf, 0)
	assert.Equal(t, []byte("abXYef"), buf)
}

func TestLazyBlob_WritePastUsedSizeFails(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("abc"), true)
	err := lb.Write([]byte("toolong!!"))
	assert.True(t, Is(err, KindBounds))
}

func TestLazyBlob_ReadWriteUnsupportedOnCompressedBlob(t *testing.T) {
	backing := newMemSource([]byte("compressed-bytes"))
	hdr := &core.BlobHeader{AllocatedSize: 16, UsedSize: 16, DataSize: 32, Compression: core.CompressionZlib}
	lb := newLazyBlob(backing, hdr, 0, -1, true)

	_, err := lb.Read(1)
	assert.True(t, Is(err, KindUnsupported))
	assert.True(t, Is(lb.Write([]byte("x")), KindUnsupported))
}

func TestLazyBlob_CloseRefreshesChecksumOnlyWhenDirty(t *testing.T) {
	payload := []byte("abcdef")
	backing := newMemSource(nil)
	_, _ = backing.WriteAt(payload, 0)
	staleDigest := md5.Sum([]byte("different"))
	_, _ = backing.WriteAt(staleDigest[:], 6)

	hdr := &core.BlobHeader{AllocatedSize: 6, UsedSize: 6, DataSize: 6, Compression: core.CompressionNone}
	lb := newLazyBlob(backing, hdr, 0, 6, true)

	require.NoError(t, lb.Close())
	buf := make([]byte, 16)
	_, _ = backing.ReadAt(buf, 6)
	assert.Equal(t, staleDigest[:], buf[:16], "Close must not touch checksum when handle was never written")

	require.NoError(t, lb.Seek(0))
	require.NoError(t, lb.Write([]byte("Z")))
	require.NoError(t, lb.Close())

	want := md5.Sum([]byte("Zbcdef"))
	_, _ = backing.ReadAt(buf, 6)
	assert.Equal(t, want[:], buf[:16])
}

func TestLazyBlob_GetBytes_WrapsBackingReadError(t *testing.T) {
	backing := readOnlyBacking{bsdftesting.NewMockReaderAt([]byte("short"))}
	hdr := &core.BlobHeader{AllocatedSize: 10, UsedSize: 10, DataSize: 10, Compression: core.CompressionNone}
	lb := newLazyBlob(backing, hdr, 0, -1, false)

	_, err := lb.GetBytes()
	assert.True(t, Is(err, KindIO))
}

func TestLazyBlob_CloseNoopWithoutChecksumOffset(t *testing.T) {
	lb, _ := newTestLazyBlob(t, []byte("abc"), true)
	require.NoError(t, lb.Write(nil))
	assert.NoError(t, lb.Close())
}
