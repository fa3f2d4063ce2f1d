package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100 * MB},
		{" 30 ", 30 * MB},
		{"1.5", 1_500_000},
		{"0", 0},
		{"2GB", 2 * GB},
		{"2 gb", 2 * GB},
		{"512MiB", 512 * MiB},
		{"10kb", 10 * KB},
		{"1TiB", TiB},
		{"4.35", 4_350_000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input, MB)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "-5", "10XB", "MB", "10000000TB", "10000000000000", "9223372036854775807B"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input, MB)
			assert.Error(t, err)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(-1))
	assert.Equal(t, "999 B", FormatBytes(999))
	assert.Equal(t, "1.50 KB", FormatBytes(1500))
	assert.Equal(t, "85.00 MB", FormatBytes(85*MB))
	assert.Equal(t, "2.00 GB", FormatBytes(2*GB))
}

func TestMegabyteConversions(t *testing.T) {
	assert.Equal(t, int64(110_000_000), FromMB(110))
	assert.InDelta(t, 20.0, ToMB(20_000_000), 1e-9)
	assert.Equal(t, "80 MB", FormatMB(80))
	assert.Equal(t, "12.5 MB", FormatMB(12.5))
}

func TestSizeTooLarge(t *testing.T) {
	_, err := ParseSize("10000000TB", MB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size too large")

	size, err := ParseSize("999999999", MB)
	require.NoError(t, err)
	assert.Equal(t, int64(999_999_999_000_000), size)

	assert.Equal(t, int64(math.MaxInt64), FromMB(1e13))
	assert.Equal(t, int64(math.MaxInt64), FromMB(math.Inf(1)))
}
