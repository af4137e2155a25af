// Package size provides a byte-count type that marshals to/from the usual
// human units ("32KB", "10MB"), used by configuration structs that accept a
// buffer or file size either as a plain integer or as a suffixed string.
package size

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a count of bytes.
type Size int64

const (
	_           = iota
	KB Size = 1 << (10 * iota)
	MB
	GB
	TB
)

func (s Size) Int64() int64 {
	return int64(s)
}

func (s Size) String() string {
	switch {
	case s >= TB:
		return fmt.Sprintf("%.2fTB", float64(s)/float64(TB))
	case s >= GB:
		return fmt.Sprintf("%.2fGB", float64(s)/float64(GB))
	case s >= MB:
		return fmt.Sprintf("%.2fMB", float64(s)/float64(MB))
	case s >= KB:
		return fmt.Sprintf("%.2fKB", float64(s)/float64(KB))
	default:
		return fmt.Sprintf("%dB", int64(s))
	}
}

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *Size) UnmarshalJSON(p []byte) error {
	str, err := strconv.Unquote(string(p))
	if err != nil {
		// fall back to a bare numeric literal
		n, e2 := strconv.ParseInt(string(p), 10, 64)
		if e2 != nil {
			return err
		}
		*s = Size(n)
		return nil
	}

	v, err := Parse(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse reads a size string such as "32KB" or a plain byte count.
func Parse(str string) (Size, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, nil
	}

	units := []struct {
		suffix string
		mul    Size
	}{
		{"TB", TB}, {"GB", GB}, {"MB", MB}, {"KB", KB}, {"B", 1},
	}

	upper := strings.ToUpper(str)
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSpace(str[:len(str)-len(u.suffix)])
			f, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("size: invalid value %q: %w", str, err)
			}
			return Size(f * float64(u.mul)), nil
		}
	}

	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid value %q: %w", str, err)
	}
	return Size(n), nil
}
