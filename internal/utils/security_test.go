package utils

import (
	"math"
	"testing"
)

// TestHostileBlobSizeClaim guards against a malicious or corrupt blob
// header that claims an allocated/used/data size far beyond any
// reasonable in-memory buffer, which would otherwise turn into a
// multi-gigabyte allocation attempt before a single payload byte is
// read.
func TestHostileBlobSizeClaim(t *testing.T) {
	tests := []struct {
		name        string
		size        uint64
		shouldFail  bool
		description string
	}{
		{
			name:        "normal blob - 1KB",
			size:        1024,
			shouldFail:  false,
			description: "normal blob size should succeed",
		},
		{
			name:        "large but valid blob - 1GB",
			size:        1024 * 1024 * 1024,
			shouldFail:  false,
			description: "large but valid blob should succeed",
		},
		{
			name:        "at MaxBlobSize",
			size:        MaxBlobSize,
			shouldFail:  false,
			description: "blob at MaxBlobSize should succeed",
		},
		{
			name:        "hostile claim - MaxUint64/2",
			size:        math.MaxUint64 / 2,
			shouldFail:  true,
			description: "malicious blob size claim should be rejected",
		},
		{
			name:        "just over MaxBlobSize",
			size:        MaxBlobSize + 1,
			shouldFail:  true,
			description: "blob exceeding MaxBlobSize should be rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.size, MaxBlobSize, "blob")
			if tt.shouldFail && err == nil {
				t.Errorf("expected size validation error for %s, got nil", tt.description)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("unexpected error for %s: %v", tt.description, err)
			}
		})
	}
}

// TestHostileStringSizeClaim guards against a length-prefixed string
// field claiming an excessive byte count.
func TestHostileStringSizeClaim(t *testing.T) {
	tests := []struct {
		name        string
		size        uint64
		shouldFail  bool
		description string
	}{
		{
			name:        "normal string - 256 bytes",
			size:        256,
			shouldFail:  false,
			description: "normal string size should succeed",
		},
		{
			name:        "max allowed string",
			size:        MaxStringSize,
			shouldFail:  false,
			description: "string at MaxStringSize should succeed",
		},
		{
			name:        "overflow attack - 1GB string",
			size:        1024 * 1024 * 1024,
			shouldFail:  true,
			description: "malicious 1GB string should be rejected",
		},
		{
			name:        "overflow attack - MaxUint64 string",
			size:        math.MaxUint64,
			shouldFail:  true,
			description: "malicious MaxUint64 string should be rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.size, MaxStringSize, "string")
			if tt.shouldFail && err == nil {
				t.Errorf("expected size validation error for %s, got nil", tt.description)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("unexpected error for %s: %v", tt.description, err)
			}
		})
	}
}

// TestHostileContainerElementCount guards against a list/map header
// claiming a huge element count that, combined with per-element
// recursive decode overhead, would be used to exhaust memory or stack
// before any actual malformed data is reached.
func TestHostileContainerElementCount(t *testing.T) {
	tests := []struct {
		name       string
		count      uint64
		shouldFail bool
	}{
		{name: "normal list - 1000 elements", count: 1000, shouldFail: false},
		{name: "at limit", count: MaxContainerElements, shouldFail: false},
		{name: "just over limit", count: MaxContainerElements + 1, shouldFail: true},
		{name: "hostile claim", count: math.MaxUint64, shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.count, MaxContainerElements, "container element count")
			if tt.shouldFail && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
