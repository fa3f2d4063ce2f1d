// Package reporter renders the summary of a maintenance run.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fenilsonani/uploads-maintenance/internal/maintenance"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// Formats lists every supported output format
var Formats = []OutputFormat{FormatSummary, FormatTable, FormatJSON, FormatYAML}

// ParseFormat validates a format name
func ParseFormat(name string) (OutputFormat, error) {
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report renders a run summary
func (r *Reporter) Report(summary *maintenance.RunSummary) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(summary)
	case FormatJSON:
		return r.reportJSON(summary)
	case FormatYAML:
		return r.reportYAML(summary)
	case FormatSummary:
		return r.reportSummary(summary)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a plain text summary
func (r *Reporter) reportSummary(s *maintenance.RunSummary) error {
	title := "=== Maintenance Summary ==="
	if s.DryRun {
		title = "=== Maintenance Summary (dry run) ==="
	}
	fmt.Fprintln(r.writer, title)
	fmt.Fprintf(r.writer, "Run: %s\n", s.RunID)
	fmt.Fprintf(r.writer, "Started: %s (%s)\n", s.StartedAt.Format(time.DateTime), s.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "Deleted: %d files, %s\n", s.DeletedFiles(), utils.FormatBytes(s.DeletedBytes()))
	fmt.Fprintf(r.writer, "\nFolders:\n")

	for _, f := range s.Folders {
		if f.Failed() {
			fmt.Fprintf(r.writer, "  %s: FAILED: %v\n", f.Name, f.ScanError)
			continue
		}
		fmt.Fprintf(r.writer, "  %s: %s used of %s, %d files deleted (%s)",
			f.Name, utils.FormatBytes(f.UsageBytes), utils.FormatBytes(f.MaxStorageBytes),
			len(f.Deleted), utils.FormatBytes(f.DeletedBytes))
		if f.Warned {
			fmt.Fprintf(r.writer, ", WARNING above %s", utils.FormatBytes(f.WarnStorageBytes))
		}
		fmt.Fprintln(r.writer)
		if len(f.DeleteErrors) > 0 {
			fmt.Fprintf(r.writer, "    %d files could not be deleted\n", len(f.DeleteErrors))
		}
	}

	if s.Cancelled {
		fmt.Fprintf(r.writer, "\nRun interrupted before every folder was processed\n")
	}
	if n := s.Errors(); n > 0 {
		fmt.Fprintf(r.writer, "\nErrors: %d\n", n)
	}

	return nil
}

// colStatus is the index of the STATUS column
const colStatus = 7

// reportTable generates a table report
func (r *Reporter) reportTable(s *maintenance.RunSummary) error {
	rows := make([][]string, 0, len(s.Folders))
	for _, f := range s.Folders {
		rows = append(rows, tableRow(f))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers("FOLDER", "FILES", "USAGE", "MAX", "WARN", "DELETED", "FREED", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != colStatus || row < 0 || row >= len(rows) {
				return cellStyle
			}
			switch rows[row][colStatus] {
			case "ok":
				return okStyle
			case "warning":
				return warnStyle
			default:
				return errorStyle
			}
		})

	fmt.Fprintln(r.writer, t.Render())

	footer := fmt.Sprintf("Total: %d files deleted, %s freed", s.DeletedFiles(), utils.FormatBytes(s.DeletedBytes()))
	if s.DryRun {
		footer += " (dry run)"
	}
	fmt.Fprintln(r.writer, footerStyle.Render(footer))
	return nil
}

func tableRow(f maintenance.FolderOutcome) []string {
	if f.Failed() {
		return []string{f.Name, "-", "-", utils.FormatBytes(f.MaxStorageBytes), warnCell(f), "-", "-", "scan failed"}
	}

	status := "ok"
	switch {
	case len(f.DeleteErrors) > 0:
		status = "errors"
	case f.Warned:
		status = "warning"
	}

	return []string{
		f.Name,
		strconv.Itoa(f.ScannedFiles),
		utils.FormatBytes(f.UsageBytes),
		utils.FormatBytes(f.MaxStorageBytes),
		warnCell(f),
		strconv.Itoa(len(f.Deleted)),
		utils.FormatBytes(f.DeletedBytes),
		status,
	}
}

func warnCell(f maintenance.FolderOutcome) string {
	if f.WarnDisabled {
		return "off"
	}
	return utils.FormatBytes(f.WarnStorageBytes)
}

type deletedFile struct {
	Path      string    `json:"path" yaml:"path"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
	Reason    string    `json:"reason" yaml:"reason"`
}

type failedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error" yaml:"error"`
}

type folderReport struct {
	Name             string        `json:"name" yaml:"name"`
	Path             string        `json:"path" yaml:"path"`
	Error            string        `json:"error,omitempty" yaml:"error,omitempty"`
	ScannedFiles     int           `json:"scanned_files" yaml:"scanned_files"`
	ScannedBytes     int64         `json:"scanned_bytes" yaml:"scanned_bytes"`
	Excluded         int           `json:"excluded" yaml:"excluded"`
	UsageBytes       int64         `json:"usage_bytes" yaml:"usage_bytes"`
	MaxStorageBytes  int64         `json:"max_storage_bytes" yaml:"max_storage_bytes"`
	WarnStorageBytes int64         `json:"warn_storage_bytes,omitempty" yaml:"warn_storage_bytes,omitempty"`
	Warned           bool          `json:"warned" yaml:"warned"`
	Notified         string        `json:"notified" yaml:"notified"`
	DeletedBytes     int64         `json:"deleted_bytes" yaml:"deleted_bytes"`
	Deleted          []deletedFile `json:"deleted" yaml:"deleted"`
	Failures         []failedFile  `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type runReport struct {
	RunID            string         `json:"run_id" yaml:"run_id"`
	StartedAt        string         `json:"started_at" yaml:"started_at"`
	DurationSeconds  float64        `json:"duration_seconds" yaml:"duration_seconds"`
	DryRun           bool           `json:"dry_run" yaml:"dry_run"`
	Cancelled        bool           `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	DeletedFiles     int            `json:"deleted_files" yaml:"deleted_files"`
	DeletedBytes     int64          `json:"deleted_bytes" yaml:"deleted_bytes"`
	DeletedFormatted string         `json:"deleted_formatted" yaml:"deleted_formatted"`
	Errors           int            `json:"errors" yaml:"errors"`
	Folders          []folderReport `json:"folders" yaml:"folders"`
}

func buildReport(s *maintenance.RunSummary) runReport {
	report := runReport{
		RunID:            s.RunID,
		StartedAt:        s.StartedAt.Format(time.RFC3339),
		DurationSeconds:  s.Duration.Seconds(),
		DryRun:           s.DryRun,
		Cancelled:        s.Cancelled,
		DeletedFiles:     s.DeletedFiles(),
		DeletedBytes:     s.DeletedBytes(),
		DeletedFormatted: utils.FormatBytes(s.DeletedBytes()),
		Errors:           s.Errors(),
		Folders:          make([]folderReport, 0, len(s.Folders)),
	}

	for _, f := range s.Folders {
		fr := folderReport{
			Name:            f.Name,
			Path:            f.Path,
			ScannedFiles:    f.ScannedFiles,
			ScannedBytes:    f.ScannedBytes,
			Excluded:        f.Excluded,
			UsageBytes:      f.UsageBytes,
			MaxStorageBytes: f.MaxStorageBytes,
			Warned:          f.Warned,
			Notified:        f.Delivery.String(),
			DeletedBytes:    f.DeletedBytes,
			Deleted:         make([]deletedFile, 0, len(f.Deleted)),
		}
		if !f.WarnDisabled {
			fr.WarnStorageBytes = f.WarnStorageBytes
		}
		if f.ScanError != nil {
			fr.Error = f.ScanError.Error()
		}
		for _, d := range f.Deleted {
			fr.Deleted = append(fr.Deleted, deletedFile{
				Path:      d.Record.Path,
				SizeBytes: d.Record.SizeBytes,
				ModTime:   d.Record.ModTime,
				Reason:    string(d.Reason),
			})
		}
		for _, e := range f.DeleteErrors {
			fr.Failures = append(fr.Failures, failedFile{
				Path:   e.Path,
				Reason: e.Reason.String(),
				Error:  e.Error(),
			})
		}
		report.Folders = append(report.Folders, fr)
	}

	return report
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(s *maintenance.RunSummary) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildReport(s))
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(s *maintenance.RunSummary) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(buildReport(s))
}

// SaveToFile saves the report to a file
func SaveToFile(summary *maintenance.RunSummary, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reporter := New(file, format)
	return reporter.Report(summary)
}
