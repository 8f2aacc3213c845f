// Package telemetry records the collector's own run statistics and writes
// them in the node exporter textfile format, so a host-level exporter can
// alert on a collector that stopped running or keeps failing.
//
// These series never enter the pushed batch.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chilemetrics/chilemetrics/agent/internal/pipeline"
)

// Recorder holds the self-instrumentation gauges of one process run.
type Recorder struct {
	reg *prometheus.Registry

	lastRun   prometheus.Gauge
	duration  prometheus.Gauge
	samples   prometheus.Gauge
	warnings  prometheus.Gauge
	exitCode  prometheus.Gauge
	sourceUp  *prometheus.GaugeVec
	records   *prometheus.GaugeVec
	fetchTime *prometheus.GaugeVec
	outcome   *prometheus.GaugeVec
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chile_collector_last_run_timestamp_seconds",
			Help: "Unix time the last collection cycle started.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chile_collector_cycle_duration_seconds",
			Help: "Wall time of the last collection cycle.",
		}),
		samples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chile_collector_samples_pushed",
			Help: "Samples accepted by the push endpoint in the last cycle.",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chile_collector_mapping_warnings",
			Help: "Records dropped during mapping in the last cycle.",
		}),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chile_collector_exit_code",
			Help: "Process exit status derived from the last cycle outcome.",
		}),
		sourceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chile_collector_source_up",
			Help: "1 if the source fetch succeeded in the last cycle, 0 otherwise.",
		}, []string{"source"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chile_collector_source_records",
			Help: "Records returned by the source in the last cycle.",
		}, []string{"source"}),
		fetchTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chile_collector_source_duration_seconds",
			Help: "Time the source fetch took in the last cycle.",
		}, []string{"source"}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chile_collector_outcome",
			Help: "1 for the outcome of the last cycle, 0 for the others.",
		}, []string{"outcome"}),
	}
	r.reg.MustRegister(r.lastRun, r.duration, r.samples, r.warnings, r.exitCode,
		r.sourceUp, r.records, r.fetchTime, r.outcome)
	return r
}

// Observe records rep. It satisfies pipeline.Observer.
func (r *Recorder) Observe(rep *pipeline.Report) {
	r.lastRun.Set(float64(rep.StartedAt.UnixNano()) / 1e9)
	r.duration.Set(rep.Duration.Seconds())
	r.samples.Set(float64(len(rep.Samples)))
	r.warnings.Set(float64(len(rep.Warnings)))
	r.exitCode.Set(float64(rep.Outcome.ExitCode()))

	for _, s := range rep.Sources {
		up := 0.0
		if s.OK() {
			up = 1
		}
		r.sourceUp.WithLabelValues(s.Source).Set(up)
		r.records.WithLabelValues(s.Source).Set(float64(len(s.Records)))
		r.fetchTime.WithLabelValues(s.Source).Set(s.Duration.Seconds())
	}

	for _, o := range []pipeline.Outcome{pipeline.Success, pipeline.PartialSuccess, pipeline.Failure} {
		v := 0.0
		if o == rep.Outcome {
			v = 1
		}
		r.outcome.WithLabelValues(o.String()).Set(v)
	}
}

// Gatherer exposes the registry, for tests and ad-hoc inspection.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile atomically writes the current values to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("telemetry: write textfile: %w", err)
	}
	return nil
}
