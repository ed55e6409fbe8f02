// Package formatting converts byte counts to and from human-readable
// sizes such as "100MB" or "1.5 GiB".
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const unit = 1024

var prefixes = []string{"", "K", "M", "G", "T", "P", "E"}

// FormatBytes renders n with base-1024 units ("1.5 MB"). Negative
// precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	if n < unit && n > -unit {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := float64(n)
	i := 0
	for (size >= unit || size <= -unit) && i < len(prefixes)-1 {
		size /= unit
		i++
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + prefixes[i] + "B"
}

// ParseBytes reads a size such as "50MB", "1.5 gib", or "2048". Units are
// base-1024 and case-insensitive; the "i" of the IEC spelling is optional.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, suffix := s, ""
	if split >= 0 {
		number, suffix = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	exp, err := exponent(suffix)
	if err != nil {
		return 0, err
	}
	for range exp {
		value *= unit
	}
	return int64(value), nil
}

func exponent(suffix string) (int, error) {
	u := strings.ToUpper(suffix)
	if u == "" || u == "B" {
		return 0, nil
	}
	u = strings.TrimSuffix(u, "B")
	u = strings.TrimSuffix(u, "I")
	for i, p := range prefixes[1:] {
		if u == p {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit %q", suffix)
}
