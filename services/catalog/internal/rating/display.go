package rating

import (
	"math"
	"strconv"
)

// View is the render-ready form of an aggregate.
type View struct {
	Average   float64    `json:"average"`
	Label     string     `json:"label"`
	Count     int        `json:"count"`
	Stars     Stars      `json:"stars"`
	Histogram Histogram  `json:"histogram"`
	Bars      [5]float64 `json:"bars"`
}

// Stars is the static star row: Full + Half + Empty == 5.
type Stars struct {
	Full  int `json:"full"`
	Half  int `json:"half"`
	Empty int `json:"empty"`
}

// FormatAverage truncates the average to one decimal.
func FormatAverage(avg float64) string {
	t := math.Floor(avg*10+1e-9) / 10
	return strconv.FormatFloat(t, 'f', 1, 64)
}

// StarsFor splits an average into full, half and empty stars. A half star is
// shown when the fractional part is in [0.25, 0.75).
func StarsFor(avg float64) Stars {
	if avg < 0 {
		avg = 0
	}
	if avg > MaxStars {
		avg = MaxStars
	}
	full := int(math.Floor(avg))
	frac := avg - float64(full)
	half := 0
	if frac >= 0.25 && frac < 0.75 {
		half = 1
	}
	return Stars{Full: full, Half: half, Empty: MaxStars - full - half}
}

// DisplayHistogram is the histogram to render. Aggregates that counted reviews
// before buckets existed are shown with every review in the 5-star bucket.
// The fallback only applies while every bucket is zero: once such an app takes
// a new review the buckets hold just that review against the larger count.
// Run RepairHistogram on legacy apps before they accept new reviews.
func DisplayHistogram(a Aggregate) Histogram {
	return Repaired(a).Histogram
}

// Bars returns each bucket as a percentage of the displayed total.
func Bars(a Aggregate) [5]float64 {
	var out [5]float64
	h := DisplayHistogram(a)
	total := h.Sum()
	if total == 0 {
		return out
	}
	for i, n := range h {
		out[i] = float64(n) / float64(total) * 100
	}
	return out
}

func Summary(a Aggregate) View {
	avg := a.Average
	if a.Count == 0 {
		avg = 0
	}
	return View{
		Average:   avg,
		Label:     FormatAverage(avg),
		Count:     a.Count,
		Stars:     StarsFor(avg),
		Histogram: DisplayHistogram(a),
		Bars:      Bars(a),
	}
}
