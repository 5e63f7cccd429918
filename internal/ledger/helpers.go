package ledger

import (
	"math"
	"time"
)

// cents and floatOf convert between the NUMERIC(…) dollar columns and the
// internal int64-cents representation domain types carry, so SQL never
// sees fractional cents.
func cents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

func floatOf(c int64) float64 {
	return float64(c) / 100
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
