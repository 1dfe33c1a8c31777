package rating

import "testing"

func TestFormatAverage_Truncates(t *testing.T) {
	cases := map[float64]string{
		0:     "0.0",
		4:     "4.0",
		3.99:  "3.9",
		2.3:   "2.3",
		4.249: "4.2",
		5:     "5.0",
	}
	for in, want := range cases {
		if got := FormatAverage(in); got != want {
			t.Fatalf("FormatAverage(%v): expected %q, got %q", in, want, got)
		}
	}
}

func TestStarsFor(t *testing.T) {
	cases := []struct {
		avg  float64
		want Stars
	}{
		{0, Stars{0, 0, 5}},
		{3.2, Stars{3, 0, 2}},
		{3.25, Stars{3, 1, 1}},
		{3.7, Stars{3, 1, 1}},
		{3.75, Stars{3, 0, 2}},
		{5, Stars{5, 0, 0}},
	}
	for _, c := range cases {
		if got := StarsFor(c.avg); got != c.want {
			t.Fatalf("StarsFor(%v): expected %+v, got %+v", c.avg, c.want, got)
		}
	}
}

func TestSummary_LegacyHistogramFallback(t *testing.T) {
	v := Summary(Aggregate{Average: 4.5, Count: 10})
	if v.Histogram.Get(5) != 10 {
		t.Fatalf("expected synthesized 5-star bucket 10, got %v", v.Histogram)
	}
	if v.Bars[4] != 100 {
		t.Fatalf("expected 5-star bar 100%%, got %v", v.Bars[4])
	}
	if v.Label != "4.5" {
		t.Fatalf("expected label 4.5, got %q", v.Label)
	}
}

func TestDisplayHistogram_LegacyAfterNewReview(t *testing.T) {
	legacy := Aggregate{Average: 4, Count: 3}
	next, err := Apply(legacy, 2)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	h := DisplayHistogram(next)
	if h.Sum() != 1 || h.Get(2) != 1 || next.Count != 4 {
		t.Fatalf("expected only the new review in buckets, got %v count=%d", h, next.Count)
	}

	repaired, err := Apply(Repaired(legacy), 2)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if h := DisplayHistogram(repaired); h.Sum() != repaired.Count || h.Get(5) != 3 {
		t.Fatalf("expected repaired buckets to match count, got %v", h)
	}
}

func TestSummary_Empty(t *testing.T) {
	v := Summary(Aggregate{Average: 3})
	if v.Average != 0 || v.Label != "0.0" {
		t.Fatalf("expected zero average for empty aggregate, got %+v", v)
	}
	if v.Bars != [5]float64{} {
		t.Fatalf("expected empty bars, got %v", v.Bars)
	}
}

func TestBars(t *testing.T) {
	b := Bars(Aggregate{Average: 3, Count: 4, Histogram: Histogram{1, 0, 2, 0, 1}})
	want := [5]float64{25, 0, 50, 0, 25}
	if b != want {
		t.Fatalf("expected %v, got %v", want, b)
	}
}
