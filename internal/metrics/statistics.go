package metrics

import "time"

// Statistics holds aggregate statistics over a window of metric values
type Statistics struct {
	Count          int       `json:"count"`
	Min            float64   `json:"min"`
	Max            float64   `json:"max"`
	Avg            float64   `json:"avg"`
	Sum            float64   `json:"sum"`
	Latest         float64   `json:"latest"`
	FirstTimestamp time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp  time.Time `json:"last_timestamp,omitempty"`
}

// Compute calculates statistics over a slice of values.
// An empty slice yields the zero Statistics, not an error.
func Compute(values []Value) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	stats := Statistics{
		Count:          len(values),
		Min:            values[0].Value,
		Max:            values[0].Value,
		Latest:         values[len(values)-1].Value,
		FirstTimestamp: values[0].Timestamp,
		LastTimestamp:  values[len(values)-1].Timestamp,
	}

	for _, v := range values {
		stats.Sum += v.Value
		if v.Value < stats.Min {
			stats.Min = v.Value
		}
		if v.Value > stats.Max {
			stats.Max = v.Value
		}
	}
	stats.Avg = stats.Sum / float64(stats.Count)

	return stats
}
