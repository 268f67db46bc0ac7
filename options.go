package bsdf

import "github.com/scigolib/bsdf/internal/core"

// Options configures a Serializer and the encode/decode operations it
// drives. DefaultOptions returns the format's default: no compression,
// no checksums, double-precision floats, eager list materialization,
// eager blob materialization. The zero value is not that default: it
// selects single-precision floats and has no logger.
type Options struct {
	compression   core.Compression
	useChecksum   bool
	float64       bool
	loadStreaming bool
	lazyBlob      bool
	logger        Logger
}

// DefaultOptions returns the format's documented defaults.
func DefaultOptions() Options {
	return Options{
		compression: core.CompressionNone,
		float64:     true,
		logger:      NopLogger{},
	}
}

// Option configures an Options value. Follows the functional options
// pattern: each Option mutates the struct being built and returns no
// error, since every field here has a total, always-valid domain.
type Option func(*Options)

// WithCompression sets the compression algorithm new blobs are
// written with. Only affects encode-side blob construction from raw
// bytes; decode always dispatches on the compression byte already
// present in the file.
func WithCompression(c core.Compression) Option {
	return func(o *Options) { o.compression = c }
}

// WithChecksum enables embedding an MD5 digest in newly written blobs.
func WithChecksum(enabled bool) Option {
	return func(o *Options) { o.useChecksum = enabled }
}

// WithFloat32 switches float encoding to single precision. The
// default is double precision (float64); calling this with true
// accepts the resulting precision loss.
func WithFloat32(enabled bool) Option {
	return func(o *Options) { o.float64 = !enabled }
}

// WithStreaming makes decode surface a trailing open/closed list as a
// *StreamReader handle instead of eagerly materializing it into a Go
// slice.
func WithStreaming(enabled bool) Option {
	return func(o *Options) { o.loadStreaming = enabled }
}

// WithLazyBlobs makes decode surface blob values as *LazyBlob handles
// bound to the underlying file instead of fully read []byte payloads.
func WithLazyBlobs(enabled bool) Option {
	return func(o *Options) { o.lazyBlob = enabled }
}

// WithLogger sets the Logger warnings (forward-compatible minor
// version, unknown extension name) are reported through. Defaults to
// NopLogger.
func WithLogger(l Logger) Option {
	return func(o *Options) { o.logger = coalesceLogger(l) }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
