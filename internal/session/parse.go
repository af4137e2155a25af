package session

import (
	"fmt"
	"strconv"
	"time"
)

// parseSeconds parses a decimal-seconds string (optionally signed) as used
// by client_time and signed_skew fields.
func parseSeconds(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// secondsSince computes now - clientTime as a float64 seconds value, the
// time_skew formula fixed at origin.
func secondsSince(clientTime float64, now time.Time) float64 {
	return float64(now.UnixNano())/1e9 - clientTime
}

// parseLocation splits an ISO-6709 compact coordinate pair, e.g.
// "+34.068930-118.445127", into its signed latitude and longitude.
func parseLocation(s string) (lat, lon float64, err error) {
	if len(s) == 0 {
		return 0, 0, fmt.Errorf("empty location")
	}

	split := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			split = i
			break
		}
	}

	if split < 0 {
		return 0, 0, fmt.Errorf("cannot split location %q", s)
	}

	lat, err = strconv.ParseFloat(s[:split], 64)
	if err != nil {
		return 0, 0, err
	}

	lon, err = strconv.ParseFloat(s[split:], 64)
	if err != nil {
		return 0, 0, err
	}

	return lat, lon, nil
}
