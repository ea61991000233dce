package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderIncludesConversionSeries(t *testing.T) {
	IncConversionStarted()
	IncConversionCompleted()
	ObserveConversionDurationMs(75)

	out := Render()
	for _, want := range []string{
		"# TYPE conversion_started_total counter",
		"# TYPE conversion_duration_ms histogram",
		`conversion_duration_ms_bucket{le="100"}`,
		`conversion_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}
	if formatFloat(snap.sum) != "555" {
		t.Fatalf("unexpected sum: %v", snap.sum)
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "h", "test", snap)
	out := buf.String()
	for _, want := range []string{`h_bucket{le="10"} 1`, `h_bucket{le="100"} 2`, `h_bucket{le="+Inf"} 3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}
