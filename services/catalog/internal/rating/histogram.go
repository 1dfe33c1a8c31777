package rating

import (
	"encoding/json"
	"strconv"
)

// MinStars and MaxStars bound a single review's star value.
const (
	MinStars = 1
	MaxStars = 5
)

// Histogram counts reviews per star value. Index 0 holds 1-star reviews.
type Histogram [MaxStars]int

// Get returns the count for a star value, or 0 when star is out of range.
func (h Histogram) Get(star int) int {
	if star < MinStars || star > MaxStars {
		return 0
	}
	return h[star-1]
}

func (h Histogram) Sum() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// MarshalJSON writes the string-keyed form {"1":n,...,"5":n}.
func (h Histogram) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, MaxStars)
	for star := MinStars; star <= MaxStars; star++ {
		m[strconv.Itoa(star)] = h[star-1]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the string-keyed object. Missing buckets stay 0;
// unknown keys and negative or non-integer counts are ignored.
func (h *Histogram) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Histogram
	for k, v := range raw {
		star, err := strconv.Atoi(k)
		if err != nil || star < MinStars || star > MaxStars {
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil || n < 0 {
			continue
		}
		out[star-1] = n
	}
	*h = out
	return nil
}
