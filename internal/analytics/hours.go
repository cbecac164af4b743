package analytics

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// CoerceHours converts a loosely typed hour value into a float64. Legacy
// producers encode the field as a JSON number or a numeric string; a
// record that cannot be coerced is excluded from aggregation, not fatal.
func CoerceHours(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// MinHours returns the minimum coercible value, or nil when none can be
// coerced. Signs pass through unmodified.
func MinHours(values []any) *float64 {
	var min *float64

	for _, v := range values {
		f, ok := CoerceHours(v)
		if !ok {
			continue
		}
		if min == nil || f < *min {
			m := f
			min = &m
		}
	}

	return min
}

func hours(d time.Duration) float64 {
	return d.Hours()
}

// meanHours averages the non-nil durations, in hours. Nil when the
// population is empty: no data is distinct from a zero value.
func meanHours(values []*time.Duration) *float64 {
	var sum float64
	count := 0

	for _, v := range values {
		if v == nil {
			continue
		}
		sum += hours(*v)
		count++
	}

	if count == 0 {
		return nil
	}

	m := sum / float64(count)
	return &m
}

func meanFloat(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	m := sum / float64(len(values))
	return &m
}

func medianFloat(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		m := sorted[mid]
		return &m
	}

	m := (sorted[mid-1] + sorted[mid]) / 2
	return &m
}
