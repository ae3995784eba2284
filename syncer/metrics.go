package syncer

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dailyyoga/cachedkv/queue"
)

// engineMetrics lives in its own set so several engines can coexist in one process
type engineMetrics struct {
	set *metrics.Set

	enqueued     *metrics.Counter
	applied      *metrics.Counter
	failed       *metrics.Counter
	retried      *metrics.Counter
	deadLettered *metrics.Counter
	passes       *metrics.Counter
	skipped      *metrics.Counter
	duration     *metrics.Histogram
}

func newEngineMetrics(name string, q *queue.Queue) *engineMetrics {
	set := metrics.NewSet()
	metric := func(base string) string {
		return fmt.Sprintf("%s{engine=%q}", base, name)
	}
	set.NewGauge(metric("cachedkv_queue_length"), func() float64 {
		return float64(q.Len())
	})
	return &engineMetrics{
		set:          set,
		enqueued:     set.NewCounter(metric("cachedkv_mutations_enqueued_total")),
		applied:      set.NewCounter(metric("cachedkv_mutations_applied_total")),
		failed:       set.NewCounter(metric("cachedkv_mutations_failed_total")),
		retried:      set.NewCounter(metric("cachedkv_mutations_retried_total")),
		deadLettered: set.NewCounter(metric("cachedkv_mutations_dead_lettered_total")),
		passes:       set.NewCounter(metric("cachedkv_drain_passes_total")),
		skipped:      set.NewCounter(metric("cachedkv_drain_skipped_total")),
		duration:     set.NewHistogram(metric("cachedkv_drain_duration_seconds")),
	}
}

// WriteMetrics writes the engine metrics in Prometheus text format
func (e *Engine) WriteMetrics(w io.Writer) {
	e.metrics.set.WritePrometheus(w)
}
