// Package maintenance runs the retention policy over every configured
// upload folder: scan, evaluate, delete, then warn when usage is high.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fenilsonani/uploads-maintenance/internal/cleaner"
	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/fenilsonani/uploads-maintenance/internal/metrics"
	"github.com/fenilsonani/uploads-maintenance/internal/notifier"
	"github.com/fenilsonani/uploads-maintenance/internal/policy"
	"github.com/fenilsonani/uploads-maintenance/internal/scanner"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
	"github.com/google/uuid"
)

// Notifier delivers warning and report messages
type Notifier interface {
	Notify(ctx context.Context, msg notifier.Message) notifier.Delivery
}

// Runner processes the configured folders one after another
type Runner struct {
	cfg      *config.Config
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Collector
	dryRun   bool
	now      func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithDryRun evaluates and reports without deleting or notifying.
// It is also enabled by dry_run in the configuration.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = r.dryRun || dryRun
	}
}

// WithMetrics records each run into c
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) {
		r.metrics = c
	}
}

// WithClock overrides the time source used for file ages and timings
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner for cfg
func New(cfg *config.Config, n Notifier, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:      cfg,
		notifier: n,
		logger:   logger,
		dryRun:   cfg.DryRun,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DryRun reports whether the runner leaves files in place
func (r *Runner) DryRun() bool {
	return r.dryRun
}

// Run processes every folder in configuration order. Failures are
// confined to the file or folder they happen in. The returned error is
// only set when ctx ends before all folders are processed; the summary
// then covers the folders that were.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		DryRun:    r.dryRun,
		Folders:   make([]FolderOutcome, 0, len(r.cfg.Folders)),
	}
	logger := r.logger.With("run_id", summary.RunID)
	logger.Info("maintenance run started", "folders", len(r.cfg.Folders), "dry_run", r.dryRun)

	var runErr error
	for _, folder := range r.cfg.Folders {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			runErr = fmt.Errorf("maintenance run interrupted: %w", err)
			logger.Warn("maintenance run interrupted", "remaining_from", folder.Name, "error", err)
			break
		}
		summary.Folders = append(summary.Folders, r.processFolder(ctx, logger, folder))
	}

	summary.Duration = r.now().Sub(summary.StartedAt)
	r.record(logger, summary)

	logger.Info("maintenance run finished",
		"duration", summary.Duration,
		"deleted_files", summary.DeletedFiles(),
		"deleted_bytes", summary.DeletedBytes(),
		"warnings", len(summary.Warnings()),
		"errors", summary.Errors(),
	)
	return summary, runErr
}

func (r *Runner) processFolder(ctx context.Context, logger *slog.Logger, folder config.FolderPolicy) FolderOutcome {
	start := r.now()
	logger = logger.With("folder", folder.Name)

	outcome := FolderOutcome{
		Name:             folder.Name,
		Path:             folder.Path,
		MaxStorageBytes:  folder.MaxStorageBytes(),
		WarnStorageBytes: folder.WarnStorageBytes(),
		WarnDisabled:     folder.WarnDisabled,
		Deleted:          []policy.Decision{},
	}

	scan, err := scanner.New(scanner.WithClock(r.now)).Scan(folder)
	if err != nil {
		outcome.ScanError = err
		logger.Error("cannot scan folder", "path", folder.Path, "error", err)
		outcome.Duration = r.now().Sub(start)
		return outcome
	}
	for _, entryErr := range scan.Errors {
		logger.Warn("skipped unreadable entry", "error", entryErr)
	}
	outcome.ScannedFiles = scan.TotalCount
	outcome.ScannedBytes = scan.TotalSize
	outcome.Excluded = scan.Excluded

	result := policy.Evaluate(folder, scan.Files)
	outcome.UsageBytes = result.TotalUsageBytes
	outcome.Warned = result.Warn
	logger.Debug("folder evaluated",
		"files", scan.TotalCount,
		"usage_before", scan.TotalSize,
		"expired", result.Count(policy.ReasonExpired),
		"over_quota", result.Count(policy.ReasonOverQuota),
		"usage_after", result.TotalUsageBytes,
	)

	cleaned, err := cleaner.New(r.dryRun, logger).Clean(folder.Path, result.ToDelete)
	if err != nil {
		// root vanished between scan and delete
		outcome.ScanError = err
		logger.Error("cannot delete from folder", "path", folder.Path, "error", err)
	} else {
		outcome.Deleted = cleaned.DeletedFiles
		outcome.DeletedBytes = cleaned.DeletedSize
		outcome.DeleteErrors = cleaned.Errors
		if len(cleaned.Errors) > 0 {
			logger.Warn("some files could not be deleted", "count", len(cleaned.Errors),
				"summary", strings.TrimSpace(cleaner.FormatErrorSummary(cleaned.Errors)))
		}
		if r.cfg.NotifyDeletions && len(cleaned.DeletedFiles) > 0 {
			r.send(ctx, logger, deletionReport(folder, cleaned.DeletedFiles))
		}
	}

	if result.Warn {
		outcome.Delivery = r.send(ctx, logger, warningMessage(folder, result.TotalUsageBytes))
	}

	outcome.Duration = r.now().Sub(start)
	return outcome
}

// send delivers msg, or only logs it during a dry run
func (r *Runner) send(ctx context.Context, logger *slog.Logger, msg notifier.Message) notifier.Delivery {
	if r.dryRun || r.notifier == nil {
		logger.Info("notification not sent", "dry_run", r.dryRun, "message", msg.Text)
		return notifier.DeliveredNone
	}
	return r.notifier.Notify(ctx, msg)
}

func (r *Runner) record(logger *slog.Logger, summary *RunSummary) {
	if r.metrics == nil {
		return
	}

	for i, folder := range r.cfg.Folders {
		if i >= len(summary.Folders) {
			break
		}
		outcome := summary.Folders[i]
		r.metrics.ObservePolicy(folder)
		if outcome.Failed() {
			r.metrics.ObserveScanError(folder.Name)
			continue
		}
		r.metrics.ObserveUsage(folder.Name, outcome.UsageBytes, outcome.Warned)
		r.metrics.ObserveDeletions(folder.Name, &cleaner.CleanResult{
			DeletedFiles: outcome.Deleted,
			Errors:       outcome.DeleteErrors,
		})
	}
	r.metrics.ObserveRun(summary.StartedAt, summary.Duration)

	if r.cfg.MetricsTextfile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
		logger.Error("cannot write metrics", "path", r.cfg.MetricsTextfile, "error", err)
	}
}

func warningMessage(folder config.FolderPolicy, usage int64) notifier.Message {
	figures := fmt.Sprintf("Total usage is %s (%s bytes); warning threshold is %s",
		utils.FormatBytes(usage), groupDigits(usage), utils.FormatMB(folder.WarnStorageMB))

	return notifier.Message{
		Folder:   folder.Name,
		Text:     fmt.Sprintf("WARNING! %s: %s", folder.Name, figures),
		Markdown: fmt.Sprintf("*_WARNING!_* *%s*: %s", folder.Name, figures),
	}
}

func deletionReport(folder config.FolderPolicy, deleted []policy.Decision) notifier.Message {
	var b strings.Builder
	var expired, overQuota []policy.Decision
	for _, d := range deleted {
		if d.Reason == policy.ReasonExpired {
			expired = append(expired, d)
		} else {
			overQuota = append(overQuota, d)
		}
	}

	if len(expired) > 0 {
		fmt.Fprintf(&b, "%d files have been deleted because they are over %d days old\n", len(expired), folder.MaxAgeDays)
		writeFiles(&b, expired)
	}
	if len(overQuota) > 0 {
		fmt.Fprintf(&b, "Storage was over-limit; %d oldest files have been deleted to get under %s\n",
			len(overQuota), utils.FormatMB(folder.MaxStorageMB))
		writeFiles(&b, overQuota)
	}

	body := strings.TrimRight(b.String(), "\n")
	return notifier.Message{
		Folder:   folder.Name,
		Text:     fmt.Sprintf("Maintenance report for %s\n%s", folder.Name, body),
		Markdown: fmt.Sprintf("*Maintenance report for %s*\n```%s```", folder.Name, body),
	}
}

func writeFiles(b *strings.Builder, decisions []policy.Decision) {
	for _, d := range decisions {
		fmt.Fprintf(b, "%s (%s)\n", d.Record.Path, d.Record.ModTime.Format(time.DateTime))
	}
}

// groupDigits renders n with thousands separators
func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
