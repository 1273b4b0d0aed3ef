package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const maxETAParts = 3

// EstimateETA extrapolates the remaining time of a task linearly from its
// progress fraction. It returns nil for non-positive progress or a missing timestamp.
func EstimateETA(progress float64, lastUpdate, createdAt *time.Time) *string {
	if progress <= 0 || lastUpdate == nil || createdAt == nil {
		return nil
	}

	elapsed := max(0, lastUpdate.Sub(*createdAt).Seconds())
	total := elapsed / progress
	remaining := max(0, total-elapsed)

	eta := FormatDuration(int64(math.RoundToEven(remaining)))
	return &eta
}

// FormatDuration renders seconds as "1d 2h 3m", keeping the three most
// significant non-zero units. Zero renders as "<1s".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "<1s"
	}

	units := []struct {
		suffix string
		size   int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	parts := make([]string, 0, maxETAParts)
	for _, u := range units {
		n := seconds / u.size
		seconds %= u.size
		if n > 0 {
			parts = append(parts, strconv.FormatInt(n, 10)+u.suffix)
		}
	}

	if len(parts) > maxETAParts {
		parts = parts[:maxETAParts]
	}
	return strings.Join(parts, " ")
}
