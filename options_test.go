package bsdf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scigolib/bsdf/internal/core"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, core.CompressionNone, o.compression)
	assert.False(t, o.useChecksum)
	assert.True(t, o.float64)
	assert.False(t, o.loadStreaming)
	assert.False(t, o.lazyBlob)
	assert.IsType(t, NopLogger{}, o.logger)
}

func TestBuildOptions_AppliesInOrder(t *testing.T) {
	o := buildOptions([]Option{
		WithCompression(core.CompressionZlib),
		WithChecksum(true),
		WithFloat32(true),
		WithStreaming(true),
		WithLazyBlobs(true),
	})

	assert.Equal(t, core.CompressionZlib, o.compression)
	assert.True(t, o.useChecksum)
	assert.False(t, o.float64, "WithFloat32(true) should clear float64")
	assert.True(t, o.loadStreaming)
	assert.True(t, o.lazyBlob)
}

func TestWithFloat32_Default(t *testing.T) {
	o := buildOptions([]Option{WithFloat32(false)})
	assert.True(t, o.float64)
}

func TestWithLogger_NilCoalescesToNop(t *testing.T) {
	o := buildOptions([]Option{WithLogger(nil)})
	assert.IsType(t, NopLogger{}, o.logger)
}

type recordingLogger struct {
	warnings []string
}

func (r *recordingLogger) Debug(string, Fields) {}
func (r *recordingLogger) Info(string, Fields)  {}
func (r *recordingLogger) Warn(msg string, _ Fields) {
	r.warnings = append(r.warnings, msg)
}
func (r *recordingLogger) Error(string, Fields) {}

func TestWithLogger_CustomLoggerRetained(t *testing.T) {
	rl := &recordingLogger{}
	o := buildOptions([]Option{WithLogger(rl)})
	o.logger.Warn("test", Fields{})
	assert.Equal(t, []string{"test"}, rl.warnings)
}
