package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// engineMetrics holds one engine's counters in a private set, so several
// engines in a process never share series.
type engineMetrics struct {
	set             *metrics.Set
	bytesUploaded   *metrics.Counter
	bytesDownloaded *metrics.Counter
	buffersReleased *metrics.Counter
	memoryGrowth    *metrics.Counter
}

func newEngineMetrics() *engineMetrics {
	s := metrics.NewSet()
	return &engineMetrics{
		set:             s,
		bytesUploaded:   s.NewCounter("bisweb_engine_bytes_uploaded_total"),
		bytesDownloaded: s.NewCounter("bisweb_engine_bytes_downloaded_total"),
		buffersReleased: s.NewCounter("bisweb_engine_buffers_released_total"),
		memoryGrowth:    s.NewCounter("bisweb_engine_memory_growth_total"),
	}
}

func (m *engineMetrics) observeCall(fn string, start time.Time, err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`bisweb_engine_calls_total{function=%q}`, fn)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`bisweb_engine_call_duration_seconds{function=%q}`, fn)).UpdateDuration(start)
	if err != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`bisweb_engine_call_errors_total{function=%q}`, fn)).Inc()
	}
}

// WriteMetrics writes the engine's metrics in Prometheus text format.
func (e *Engine) WriteMetrics(w io.Writer) {
	e.metrics.set.WritePrometheus(w)
}
