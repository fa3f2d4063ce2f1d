// Package metrics records the outcome of a maintenance run as Prometheus
// metrics and writes them for node_exporter's textfile collector.
//
// Metrics:
//   - uploads_maintenance_folder_usage_bytes: usage left after deletions
//   - uploads_maintenance_folder_limit_bytes: max and warn thresholds
//   - uploads_maintenance_folder_warning: 1 when usage is above warn
//   - uploads_maintenance_deleted_files_total: files deleted by reason
//   - uploads_maintenance_deleted_bytes_total: bytes deleted by reason
//   - uploads_maintenance_scan_errors_total: folders that could not be scanned
//   - uploads_maintenance_delete_errors_total: files that could not be deleted
//   - uploads_maintenance_last_run_timestamp_seconds
//   - uploads_maintenance_last_run_duration_seconds
package metrics

import (
	"fmt"
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/cleaner"
	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uploads_maintenance"

// Collector holds the metrics of a single run
type Collector struct {
	registry *prometheus.Registry

	usageBytes   *prometheus.GaugeVec
	limitBytes   *prometheus.GaugeVec
	warning      *prometheus.GaugeVec
	deletedFiles *prometheus.CounterVec
	deletedBytes *prometheus.CounterVec
	scanErrors   *prometheus.CounterVec
	deleteErrors *prometheus.CounterVec
	lastRun      prometheus.Gauge
	lastDuration prometheus.Gauge
}

// New creates a Collector backed by a fresh registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		usageBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folder_usage_bytes",
			Help:      "Bytes used by the folder after deletions",
		}, []string{"folder"}),

		limitBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folder_limit_bytes",
			Help:      "Configured storage thresholds of the folder",
		}, []string{"folder", "threshold"}),

		warning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "folder_warning",
			Help:      "1 when folder usage exceeds the warning threshold",
		}, []string{"folder"}),

		deletedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_files_total",
			Help:      "Files deleted, by reason",
		}, []string{"folder", "reason"}),

		deletedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_bytes_total",
			Help:      "Bytes deleted, by reason",
		}, []string{"folder", "reason"}),

		scanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_errors_total",
			Help:      "Folders that could not be scanned",
		}, []string{"folder"}),

		deleteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_errors_total",
			Help:      "Files that could not be deleted, by error reason",
		}, []string{"folder", "reason"}),

		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),

		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run",
		}),
	}

	c.registry.MustRegister(
		c.usageBytes,
		c.limitBytes,
		c.warning,
		c.deletedFiles,
		c.deletedBytes,
		c.scanErrors,
		c.deleteErrors,
		c.lastRun,
		c.lastDuration,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePolicy records the thresholds of a folder
func (c *Collector) ObservePolicy(p config.FolderPolicy) {
	c.limitBytes.WithLabelValues(p.Name, "max").Set(float64(p.MaxStorageBytes()))
	if !p.WarnDisabled {
		c.limitBytes.WithLabelValues(p.Name, "warn").Set(float64(p.WarnStorageBytes()))
	}
}

// ObserveUsage records the final usage and warning state of a folder
func (c *Collector) ObserveUsage(folder string, usageBytes int64, warn bool) {
	c.usageBytes.WithLabelValues(folder).Set(float64(usageBytes))
	v := 0.0
	if warn {
		v = 1
	}
	c.warning.WithLabelValues(folder).Set(v)
}

// ObserveDeletions records deleted files and deletion failures
func (c *Collector) ObserveDeletions(folder string, result *cleaner.CleanResult) {
	if result == nil {
		return
	}
	for _, d := range result.DeletedFiles {
		reason := string(d.Reason)
		c.deletedFiles.WithLabelValues(folder, reason).Inc()
		c.deletedBytes.WithLabelValues(folder, reason).Add(float64(d.Record.SizeBytes))
	}
	for _, e := range result.Errors {
		c.deleteErrors.WithLabelValues(folder, e.Reason.String()).Inc()
	}
}

// ObserveScanError counts a folder that could not be scanned. Its usage
// and warning gauges are dropped so a long-lived collector does not keep
// reporting figures from an earlier run.
func (c *Collector) ObserveScanError(folder string) {
	c.scanErrors.WithLabelValues(folder).Inc()
	c.usageBytes.DeleteLabelValues(folder)
	c.warning.DeleteLabelValues(folder)
}

// ObserveRun records when the run started and how long it took
func (c *Collector) ObserveRun(started time.Time, duration time.Duration) {
	c.lastRun.Set(float64(started.Unix()))
	c.lastDuration.Set(duration.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
