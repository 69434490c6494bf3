package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesRoastSeries(t *testing.T) {
	IncRoastStarted()
	IncRoastFallback()
	ObserveCritiqueDurationMs(750)
	ObserveCritiqueDurationMs(-5)

	out := Render()
	for _, want := range []string{
		"# TYPE roast_started_total counter",
		"roast_fallback_total ",
		"critique_duration_ms_bucket{le=\"1000\"}",
		"critique_duration_ms_bucket{le=\"+Inf\"}",
		"critique_duration_ms_count ",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
	if formatFloat(snap.sum) != "555" {
		t.Fatalf("unexpected sum %v", snap.sum)
	}
}
