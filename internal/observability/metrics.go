package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	compileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "msggen",
			Subsystem: "compile",
			Name:      "runs_total",
			Help:      "Schema compilations by result.",
		},
		[]string{"result"},
	)
	compileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "msggen",
			Subsystem: "compile",
			Name:      "duration_seconds",
			Help:      "Schema load and validation time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	schemaErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "msggen",
			Subsystem: "compile",
			Name:      "schema_errors_total",
			Help:      "Schema errors reported across compilations.",
		},
	)
	messages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "msggen",
			Subsystem: "compile",
			Name:      "messages",
			Help:      "Messages in the last successful compilation.",
		},
	)
	emittedFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "msggen",
			Subsystem: "emit",
			Name:      "files_total",
			Help:      "Generated files by backend language.",
		},
		[]string{"language"},
	)
	writtenBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "msggen",
			Subsystem: "output",
			Name:      "bytes_total",
			Help:      "Bytes of generated source written to disk.",
		},
	)
)

// RegisterMetrics adds the collectors to the package registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(compileRuns, compileDuration, schemaErrors, messages, emittedFiles, writtenBytes)
	})
}

// Registry exposes the registry the recorders write to.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

func RecordCompile(msgCount, errCount int, duration time.Duration) {
	RegisterMetrics()
	result := "ok"
	if errCount > 0 {
		result = "error"
		schemaErrors.Add(float64(errCount))
	} else {
		messages.Set(float64(msgCount))
	}
	compileRuns.WithLabelValues(result).Inc()
	compileDuration.Observe(duration.Seconds())
}

func RecordEmit(language string, files int) {
	RegisterMetrics()
	emittedFiles.WithLabelValues(language).Add(float64(files))
}

func RecordWrite(bytes int) {
	RegisterMetrics()
	writtenBytes.Add(float64(bytes))
}

// WriteTextfile dumps the registry in the text exposition format, for
// node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry())
}
