// Package rating holds the per-app rating aggregate and the pure functions
// that fold a new review into it.
package rating

import (
	"errors"
)

var ErrInvalidStars = errors.New("stars must be between 1 and 5")

// Aggregate summarises all reviews of one app.
// Average is 0 while Count is 0.
type Aggregate struct {
	Average   float64   `json:"average"`
	Count     int       `json:"count"`
	Histogram Histogram `json:"histogram"`
}

// Apply returns the aggregate after one more review with the given stars.
// The input is not modified.
func Apply(cur Aggregate, stars int) (Aggregate, error) {
	if stars < MinStars || stars > MaxStars {
		return cur, ErrInvalidStars
	}
	next := cur
	next.Count = cur.Count + 1
	next.Average = (cur.Average*float64(cur.Count) + float64(stars)) / float64(next.Count)
	next.Histogram[stars-1]++
	return next, nil
}

// ApplyFunc binds stars so the fold can be run later against a fresh aggregate,
// e.g. inside a store transaction.
func ApplyFunc(stars int) func(Aggregate) (Aggregate, error) {
	return func(cur Aggregate) (Aggregate, error) {
		return Apply(cur, stars)
	}
}

// NeedsRepair reports whether the aggregate predates histogram tracking:
// reviews were counted but no bucket was ever filled.
func NeedsRepair(a Aggregate) bool {
	return a.Count > 0 && a.Histogram.Sum() == 0
}

// Repaired returns the aggregate with the full count placed in the 5-star
// bucket when NeedsRepair holds, and the aggregate unchanged otherwise.
// Only the explicit repair migration persists this value.
func Repaired(a Aggregate) Aggregate {
	if !NeedsRepair(a) {
		return a
	}
	a.Histogram = Histogram{}
	a.Histogram[MaxStars-1] = a.Count
	return a
}
