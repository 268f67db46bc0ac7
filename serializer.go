package bsdf

import (
	"crypto/md5" //nolint:gosec // format-mandated checksum algorithm, not used for security
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/scigolib/bsdf/internal/compress"
	"github.com/scigolib/bsdf/internal/core"
	"github.com/scigolib/bsdf/internal/utils"
)

// FormatMajor and FormatMinor are the file-format version this
// package writes and the version it accepts on read, matching the
// reference implementation's format_version.
const (
	FormatMajor byte = 2
	FormatMinor byte = 0
)

// maxRecursionDepth guards against unbounded nesting; the spec
// forbids cycles in the wire format, so legitimate documents never
// approach this, and a crafted file claiming deeper nesting fails
// cleanly instead of overflowing the call stack.
const maxRecursionDepth = 10000

var magic = [4]byte{'B', 'S', 'D', 'F'}

// Serializer is the top-level BSDF driver: it owns an extension
// registry and default options, and exposes encode/decode/save/load
// bound to that registry. Two Serializer values are independent; a
// single Serializer is not safe for concurrent use, matching the
// format's single-threaded, synchronous concurrency model.
type Serializer struct {
	extensions     *ExtensionRegistry
	defaultOptions Options
}

// NewSerializer returns a Serializer preloaded with the standard "c"
// and "ndarray" extensions and the given default options.
func NewSerializer(opts ...Option) *Serializer {
	return &Serializer{
		extensions:     NewExtensionRegistry(),
		defaultOptions: buildOptions(opts),
	}
}

// RegisterExtension adds ext to this Serializer's registry.
func (s *Serializer) RegisterExtension(ext Extension) error {
	return s.extensions.Register(ext)
}

// UnregisterExtension removes the named extension from this
// Serializer's registry.
func (s *Serializer) UnregisterExtension(name string) {
	s.extensions.Unregister(name)
}

func (s *Serializer) resolveOptions(opts []Option) Options {
	o := s.defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = NopLogger{}
	}
	return o
}

// Encode writes v to an in-memory buffer and returns it.
func (s *Serializer) Encode(v Value, opts ...Option) ([]byte, error) {
	o := s.resolveOptions(opts)
	sink := newMemSink()
	if err := s.writeFile(sink, v, o); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// Decode parses a complete in-memory BSDF document.
func (s *Serializer) Decode(data []byte, opts ...Option) (Value, error) {
	o := s.resolveOptions(opts)
	src := newMemSource(data)
	cr := &countingReader{r: src}
	return s.readFile(cr, o, src)
}

// Save writes v to sink, which must support write, tell, and seek
// (the last only exercised if v contains a *ListStream).
func (s *Serializer) Save(sink Sink, v Value, opts ...Option) error {
	o := s.resolveOptions(opts)
	return s.writeFile(sink, v, o)
}

// Load reads one complete BSDF document from source. If source also
// implements RandomAccess and WithLazyBlobs is set, decoded blobs are
// returned as *LazyBlob handles bound to it instead of materialized
// []byte payloads.
func (s *Serializer) Load(source Source, opts ...Option) (Value, error) {
	o := s.resolveOptions(opts)
	cr := &countingReader{r: source}
	var backing RandomAccess
	if ra, ok := source.(RandomAccess); ok {
		backing = ra
	}
	return s.readFile(cr, o, backing)
}

func (s *Serializer) writeFile(sink Sink, v Value, o Options) error {
	if _, err := sink.Write(append(magic[:], FormatMajor, FormatMinor)); err != nil {
		return ioError("writing file header", err)
	}
	st := &encodeState{options: o, extensions: s.extensions}
	return s.writeValue(sink, v, st)
}

func (s *Serializer) readFile(cr *countingReader, o Options, backing RandomAccess) (Value, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(cr, hdr[:]); err != nil {
		return nil, formatError("reading file header", err)
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return nil, formatError("bad magic bytes", nil)
	}
	fileMajor, fileMinor := hdr[4], hdr[5]
	if fileMajor != FormatMajor {
		return nil, versionError(fmt.Sprintf("file major version %d is incompatible with reader major version %d", fileMajor, FormatMajor), nil)
	}
	if fileMinor > FormatMinor {
		o.logger.Warn("file minor version is newer than this reader supports", Fields{
			"file_minor":   fileMinor,
			"reader_minor": FormatMinor,
		})
	}

	st := &decodeState{options: o, extensions: s.extensions, backing: backing, writable: backing != nil}
	return s.readValue(cr, st)
}

// countingReader wraps a Source and tracks the absolute number of
// bytes consumed from it, giving blob decoding the file offsets it
// needs to compute a LazyBlob's payload start and checksum location
// without requiring Source itself to support seeking or Tell.
type countingReader struct {
	r   Source
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

// encodeState threads per-call options and registry lookups through
// the recursive value writer, plus the one-stream-and-it-must-be-last
// bookkeeping §4.6 requires.
type encodeState struct {
	options    Options
	extensions *ExtensionRegistry
	streamSeen bool
}

// decodeState is encodeState's read-side counterpart.
type decodeState struct {
	options    Options
	extensions *ExtensionRegistry
	backing    RandomAccess
	writable   bool
	depth      int
}

func (st *decodeState) child() *decodeState {
	return &decodeState{options: st.options, extensions: st.extensions, backing: st.backing, writable: st.writable, depth: st.depth + 1}
}

// --- encode ---

func (s *Serializer) writeValue(sink Sink, v Value, st *encodeState) error {
	if st.streamSeen {
		return structuralError("a list stream must be the last value written in a file")
	}
	if ls, ok := v.(*ListStream); ok {
		return s.writeStreamValue(sink, ls, st)
	}
	if isBaseType(v) {
		tag, err := chooseTag(v, st.options)
		if err != nil {
			return err
		}
		if err := core.WriteTag(sink, tag, ""); err != nil {
			return ioError("writing type tag", err)
		}
		return s.writePayload(sink, tag, v, st)
	}

	ext, ok := st.extensions.FindForEncode(v)
	if !ok {
		return notEncodableError(fmt.Sprintf("%T", v))
	}
	inner, err := ext.ToBase(v)
	if err != nil {
		return formatError(fmt.Sprintf("extension %q ToBase failed", ext.Name), err)
	}
	if !isBaseType(inner) {
		if again, ok := st.extensions.FindForEncode(inner); ok && again.Name == ext.Name {
			return extensionRecursionError(ext.Name)
		}
		return formatError(fmt.Sprintf("extension %q ToBase must return a base-encodable value, got %T", ext.Name, inner), nil)
	}

	tag, err := chooseTag(inner, st.options)
	if err != nil {
		return err
	}
	if err := core.WriteTag(sink, tag, ext.Name); err != nil {
		return ioError("writing extension type tag", err)
	}
	return s.writePayload(sink, tag, inner, st)
}

func (s *Serializer) writeStreamValue(sink Sink, ls *ListStream, st *encodeState) error {
	if ls.state != streamUnbound {
		return structuralError("a ListStream instance may not be reused across encode calls")
	}
	if err := core.WriteTag(sink, core.TagList, ""); err != nil {
		return ioError("writing list stream tag", err)
	}
	countOffset, err := sink.Tell()
	if err != nil {
		return ioError("reading sink cursor for stream header", err)
	}
	if err := core.WriteStreamHeader(sink, core.StreamOpen, 0); err != nil {
		return ioError("writing stream header", err)
	}
	ls.bind(sink, countOffset, func(sk Sink, val Value) error {
		// Appended elements follow the stream header, so they are
		// written with their own state; a stream inside one would be a
		// second stream in the file.
		elemSt := &encodeState{options: st.options, extensions: st.extensions}
		if err := s.writeValue(sk, val, elemSt); err != nil {
			return err
		}
		if elemSt.streamSeen {
			return structuralError("a file may contain only one list stream")
		}
		return nil
	})
	st.streamSeen = true
	return nil
}

func (s *Serializer) writePayload(sink Sink, tag core.Tag, v Value, st *encodeState) error {
	switch tag {
	case core.TagNull, core.TagTrue, core.TagFalse:
		return nil
	case core.TagInt16:
		n, err := toInt64Generic(v)
		if err != nil {
			return encodingError("encoding int16 payload", err)
		}
		return wrapIO(core.WriteInt16(sink, int16(n)))
	case core.TagInt64:
		n, err := toInt64Generic(v)
		if err != nil {
			return encodingError("encoding int64 payload", err)
		}
		return wrapIO(core.WriteInt64(sink, n))
	case core.TagFloat32:
		f, err := toFloat64Generic(v)
		if err != nil {
			return encodingError("encoding float32 payload", err)
		}
		return wrapIO(core.WriteFloat32(sink, float32(f)))
	case core.TagFloat64:
		f, err := toFloat64Generic(v)
		if err != nil {
			return encodingError("encoding float64 payload", err)
		}
		return wrapIO(core.WriteFloat64(sink, f))
	case core.TagString:
		str, ok := v.(string)
		if !ok {
			return encodingError(fmt.Sprintf("expected a string, got %T", v), nil)
		}
		if !utf8.ValidString(str) {
			return encodingError("string value is not valid utf-8", nil)
		}
		return wrapIO(core.WriteString(sink, str))
	case core.TagList:
		return s.writeList(sink, v, st)
	case core.TagMap:
		return s.writeMap(sink, v, st)
	case core.TagBlob:
		return s.writeBlob(sink, v, st.options)
	default:
		return formatError(fmt.Sprintf("no payload writer for tag %q", byte(tag)), nil)
	}
}

func (s *Serializer) writeList(sink Sink, v Value, st *encodeState) error {
	list, ok := v.([]Value)
	if !ok {
		return encodingError(fmt.Sprintf("expected a list, got %T", v), nil)
	}
	if err := core.WriteListHeader(sink, uint64(len(list))); err != nil {
		return ioError("writing list header", err)
	}
	for _, el := range list {
		if err := s.writeValue(sink, el, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) writeMap(sink Sink, v Value, st *encodeState) error {
	m, ok := v.(Map)
	if !ok {
		return encodingError(fmt.Sprintf("expected a map, got %T", v), nil)
	}
	if err := core.WriteMapHeader(sink, uint64(len(m))); err != nil {
		return ioError("writing map header", err)
	}
	seen := make(map[string]struct{}, len(m))
	for _, entry := range m {
		if entry.Key == "" {
			return encodingError("map key must not be empty", nil)
		}
		if _, dup := seen[entry.Key]; dup {
			return encodingError(fmt.Sprintf("duplicate map key %q", entry.Key), nil)
		}
		seen[entry.Key] = struct{}{}
		if err := core.WriteMapKey(sink, entry.Key); err != nil {
			return ioError("writing map key", err)
		}
		if err := s.writeValue(sink, entry.Value, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) writeBlob(sink Sink, v Value, o Options) error {
	var raw []byte
	var extraSize uint64
	switch b := v.(type) {
	case Blob:
		raw, extraSize = b.Data, b.ExtraSize
	case []byte:
		raw = b
	case *LazyBlob:
		data, err := b.GetBytes()
		if err != nil {
			return err
		}
		raw = data
	default:
		return encodingError(fmt.Sprintf("expected a blob, got %T", v), nil)
	}

	dataSize := uint64(len(raw))
	payload := raw
	if o.compression != core.CompressionNone {
		codec, err := compress.ForAlgorithm(o.compression)
		if err != nil {
			return formatError("selecting blob compression", err)
		}
		compressed, err := codec.Compress(raw)
		if err != nil {
			return formatError("compressing blob payload", err)
		}
		payload = compressed
	}

	var digest *[16]byte
	if o.useChecksum {
		d := md5.Sum(payload)
		digest = &d
	}

	if err := core.WriteBlob(sink, payload, dataSize, extraSize, o.compression, digest); err != nil {
		return ioError("writing blob", err)
	}
	return nil
}

func wrapIO(err error) error {
	if err != nil {
		return ioError("writing primitive payload", err)
	}
	return nil
}

// --- decode ---

func (s *Serializer) readValue(cr *countingReader, st *decodeState) (Value, error) {
	if st.depth > maxRecursionDepth {
		return nil, formatError("maximum nesting depth exceeded", nil)
	}
	tag, extName, err := core.ReadTag(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, formatError("reading type tag", err)
	}

	base, err := s.readPayload(cr, tag, st)
	if err != nil {
		return nil, err
	}
	if extName == "" {
		return base, nil
	}

	ext, ok := st.extensions.Lookup(extName)
	if !ok {
		st.options.logger.Warn("unknown extension encountered during decode", Fields{"extension": extName})
		return base, nil
	}
	out, err := ext.FromBase(base)
	if err != nil {
		return nil, formatError(fmt.Sprintf("extension %q FromBase failed", extName), err)
	}
	return out, nil
}

func (s *Serializer) readPayload(cr *countingReader, tag core.Tag, st *decodeState) (Value, error) {
	switch tag {
	case core.TagNull:
		return nil, nil
	case core.TagTrue:
		return true, nil
	case core.TagFalse:
		return false, nil
	case core.TagInt16:
		n, err := core.ReadInt16(cr)
		if err != nil {
			return nil, formatError("reading int16 payload", err)
		}
		return int64(n), nil
	case core.TagInt64:
		n, err := core.ReadInt64(cr)
		if err != nil {
			return nil, formatError("reading int64 payload", err)
		}
		return n, nil
	case core.TagFloat32:
		f, err := core.ReadFloat32(cr)
		if err != nil {
			return nil, formatError("reading float32 payload", err)
		}
		return float64(f), nil
	case core.TagFloat64:
		f, err := core.ReadFloat64(cr)
		if err != nil {
			return nil, formatError("reading float64 payload", err)
		}
		return f, nil
	case core.TagString:
		str, err := core.ReadString(cr)
		if err != nil {
			return nil, formatError("reading string payload", err)
		}
		return str, nil
	case core.TagList:
		return s.readList(cr, st)
	case core.TagMap:
		return s.readMap(cr, st)
	case core.TagBlob:
		return s.readBlob(cr, st)
	default:
		return nil, formatError(fmt.Sprintf("unknown type tag %q", byte(tag)), nil)
	}
}

func (s *Serializer) readList(cr *countingReader, st *decodeState) (Value, error) {
	kind, count, err := core.ReadListMarker(cr)
	if err != nil {
		return nil, formatError("reading list header", err)
	}

	switch kind {
	case core.ListClosed:
		if err := utils.ValidateBufferSize(count, utils.MaxContainerElements, "list element count"); err != nil {
			return nil, formatError("list element count", err)
		}
		list := make([]Value, 0, count)
		for i := uint64(0); i < count; i++ {
			v, err := s.readValue(cr, st.child())
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case core.ListStreamOpen, core.ListStreamClosed:
		open := kind == core.ListStreamOpen && count == 0
		decodeValue := func(src Source) (Value, error) {
			return s.readValue(src.(*countingReader), st.child())
		}
		if st.options.loadStreaming {
			return &StreamReader{source: cr, open: open, remaining: count, decodeValue: decodeValue}, nil
		}
		// A closed stream's stored count only reflects the element count
		// at the time of that close; a soft close followed by more
		// appends and no re-close leaves more elements on disk than the
		// header says. Eager decode always reads to EOF and ignores the
		// stored count, the way the reference reader's stream loop does,
		// rather than trusting a count that can be stale.
		var list []Value
		for {
			v, err := s.readValue(cr, st.child())
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	default:
		return nil, formatError("unrecognized list header kind", nil)
	}
}

func (s *Serializer) readMap(cr *countingReader, st *decodeState) (Value, error) {
	count, err := core.ReadMapHeader(cr)
	if err != nil {
		return nil, formatError("reading map header", err)
	}
	if err := utils.ValidateBufferSize(count, utils.MaxContainerElements, "map entry count"); err != nil {
		return nil, formatError("map entry count", err)
	}
	m := make(Map, 0, count)
	for i := uint64(0); i < count; i++ {
		key, err := core.ReadMapKey(cr)
		if err != nil {
			return nil, formatError("reading map key", err)
		}
		val, err := s.readValue(cr, st.child())
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}
	return m, nil
}

func (s *Serializer) readBlob(cr *countingReader, st *decodeState) (Value, error) {
	headerStart := cr.pos
	hdr, err := core.ReadBlobHeader(cr)
	if err != nil {
		return nil, formatError("reading blob header", err)
	}

	headerWidth := core.BlobHeaderWidth(hdr.AllocatedSize, hdr.UsedSize, hdr.DataSize, hdr.Checksum != nil, hdr.Alignment)
	payloadStart := headerStart + int64(headerWidth)
	checksumOffset := int64(-1)
	if hdr.Checksum != nil {
		checksumOffset = headerStart +
			int64(core.LenWidth(hdr.AllocatedSize)) +
			int64(core.LenWidth(hdr.UsedSize)) +
			int64(core.LenWidth(hdr.DataSize)) + 2
	}

	if st.options.lazyBlob {
		if st.backing == nil {
			return nil, unsupportedError("lazy_blob requires a RandomAccess-capable source")
		}
		if _, err := io.CopyN(io.Discard, cr, int64(hdr.AllocatedSize)); err != nil {
			return nil, ioError("skipping blob payload for lazy handle", err)
		}
		return newLazyBlob(st.backing, hdr, payloadStart, checksumOffset, st.writable), nil
	}

	raw, err := core.ReadBlobPayload(cr, hdr)
	if err != nil {
		return nil, formatError("reading blob payload", err)
	}
	if hdr.Checksum != nil {
		digest := md5.Sum(raw)
		if digest != *hdr.Checksum {
			return nil, integrityError(fmt.Sprintf("blob checksum mismatch at offset %d", headerStart))
		}
	}
	if hdr.Compression == core.CompressionNone {
		return Blob{Data: raw}, nil
	}
	codec, err := compress.ForAlgorithm(hdr.Compression)
	if err != nil {
		return nil, formatError("unknown blob compression", err)
	}
	decompressed, err := codec.Decompress(raw, hdr.DataSize)
	if err != nil {
		return nil, formatError("decompressing blob payload", err)
	}
	return Blob{Data: decompressed}, nil
}

// --- value classification shared by encode ---

func isBaseType(v Value) bool {
	switch v.(type) {
	case nil, bool, string:
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	case []Value, Map, Blob, *LazyBlob, []byte:
		return true
	default:
		return false
	}
}

func chooseTag(v Value, o Options) (core.Tag, error) {
	switch x := v.(type) {
	case nil:
		return core.TagNull, nil
	case bool:
		if x {
			return core.TagTrue, nil
		}
		return core.TagFalse, nil
	case string:
		return core.TagString, nil
	case []byte, Blob, *LazyBlob:
		return core.TagBlob, nil
	case []Value:
		return core.TagList, nil
	case Map:
		return core.TagMap, nil
	case float32, float64:
		if o.float64 {
			return core.TagFloat64, nil
		}
		return core.TagFloat32, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := toInt64Generic(x)
		if err != nil {
			return 0, encodingError("selecting integer tag", err)
		}
		if n >= math.MinInt16 && n <= math.MaxInt16 {
			return core.TagInt16, nil
		}
		return core.TagInt64, nil
	default:
		return 0, fmt.Errorf("unrecognized base value type %T", v)
	}
}

func toInt64Generic(v Value) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d exceeds signed 64-bit range", n)
		}
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d exceeds signed 64-bit range", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func toFloat64Generic(v Value) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("not a float: %T", v)
	}
}

// --- package-level convenience API bound to a shared default Serializer ---

var defaultSerializer = NewSerializer()

// Encode writes v using the package's default Serializer.
func Encode(v Value, opts ...Option) ([]byte, error) { return defaultSerializer.Encode(v, opts...) }

// Decode parses data using the package's default Serializer.
func Decode(data []byte, opts ...Option) (Value, error) { return defaultSerializer.Decode(data, opts...) }

// Save writes v to sink using the package's default Serializer.
func Save(sink Sink, v Value, opts ...Option) error { return defaultSerializer.Save(sink, v, opts...) }

// Load reads one document from source using the package's default
// Serializer.
func Load(source Source, opts ...Option) (Value, error) { return defaultSerializer.Load(source, opts...) }

// RegisterExtension adds ext to the package's default Serializer.
func RegisterExtension(ext Extension) error { return defaultSerializer.RegisterExtension(ext) }

// UnregisterExtension removes an extension from the package's default
// Serializer.
func UnregisterExtension(name string) { defaultSerializer.UnregisterExtension(name) }
