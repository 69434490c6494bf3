package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	roastStartedTotal   atomic.Uint64
	roastCompletedTotal atomic.Uint64
	roastFailedTotal    atomic.Uint64
	roastFallbackTotal  atomic.Uint64
	roastTruncatedTotal atomic.Uint64
	reactionsTotal      atomic.Uint64

	critiqueDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 20000, 30000})
)

// IncRoastStarted increments the started counter.
func IncRoastStarted() {
	roastStartedTotal.Add(1)
}

// IncRoastCompleted increments the completed counter.
func IncRoastCompleted() {
	roastCompletedTotal.Add(1)
}

// IncRoastFailed increments the failed counter.
func IncRoastFailed() {
	roastFailedTotal.Add(1)
}

// IncRoastFallback counts roasts answered with the synthesized fallback item.
func IncRoastFallback() {
	roastFallbackTotal.Add(1)
}

// IncRoastTruncated counts requests whose text was cut before the critique call.
func IncRoastTruncated() {
	roastTruncatedTotal.Add(1)
}

// IncReaction counts reaction increments.
func IncReaction() {
	reactionsTotal.Add(1)
}

// ObserveCritiqueDurationMs records an upstream critique call duration in milliseconds.
func ObserveCritiqueDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	critiqueDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "roast_started_total", "Total roasts started", roastStartedTotal.Load())
	writeCounter(&buf, "roast_completed_total", "Total roasts completed", roastCompletedTotal.Load())
	writeCounter(&buf, "roast_failed_total", "Total roasts failed", roastFailedTotal.Load())
	writeCounter(&buf, "roast_fallback_total", "Roasts answered with the fallback item", roastFallbackTotal.Load())
	writeCounter(&buf, "roast_truncated_total", "Roast requests truncated before critique", roastTruncatedTotal.Load())
	writeCounter(&buf, "roast_reactions_total", "Reaction increments", reactionsTotal.Load())
	writeHistogram(&buf, "critique_duration_ms", "Upstream critique call duration in milliseconds", critiqueDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
