package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal units. Storage thresholds are expressed in these.
const (
	B  = 1
	KB = 1000 * B
	MB = 1000 * KB
	GB = 1000 * MB
	TB = 1000 * GB
)

// Binary units, accepted when a config value spells them out.
const (
	KiB = 1024 * B
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

var units = map[string]float64{
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"t":   TB,
	"tb":  TB,
	"kib": KiB,
	"mib": MiB,
	"gib": GiB,
	"tib": TiB,
}

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatMB renders a megabyte figure the way warnings quote thresholds.
func FormatMB(mb float64) string {
	return strconv.FormatFloat(mb, 'f', -1, 64) + " MB"
}

// ToMB converts a byte count to decimal megabytes.
func ToMB(bytes int64) float64 {
	return float64(bytes) / MB
}

// FromMB converts decimal megabytes to whole bytes. Values beyond the
// int64 range saturate at math.MaxInt64.
func FromMB(mb float64) int64 {
	b, ok := toBytes(mb, MB)
	if !ok {
		return math.MaxInt64
	}
	return b
}

// toBytes multiplies value by unit and rounds, reporting false when the
// result does not fit in an int64
func toBytes(value, unit float64) (int64, bool) {
	b := math.Round(value * unit)
	if math.IsNaN(b) || math.IsInf(b, 0) || b >= math.MaxInt64 {
		return 0, false
	}
	return int64(b), true
}

// ParseSize converts human-readable size to bytes. A bare number is read
// in defaultUnit bytes (for example MB).
func ParseSize(size string, defaultUnit int64) (int64, error) {
	s := strings.TrimSpace(size)
	if s == "" {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == '-' || s[i] == '+') {
		i++
	}

	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}
	if value < 0 {
		return 0, fmt.Errorf("size must be >= 0: %q", size)
	}

	mult := float64(defaultUnit)
	if unit := strings.ToLower(strings.TrimSpace(s[i:])); unit != "" {
		m, ok := units[unit]
		if !ok {
			return 0, fmt.Errorf("unknown unit: %s", unit)
		}
		mult = m
	}

	bytes, ok := toBytes(value, mult)
	if !ok {
		return 0, fmt.Errorf("size too large: %q", size)
	}
	return bytes, nil
}
