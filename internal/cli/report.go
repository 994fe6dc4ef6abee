// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ZacharyZcR/SyscallExtract/internal/pe"
	"github.com/ZacharyZcR/SyscallExtract/internal/syscalls"
)

// Reporter formats and prints the outcome of an extraction run.
type Reporter struct {
	report  *syscalls.Report
	out     io.Writer
	verbose bool
}

// NewReporter creates a new reporter writing to out.
func NewReporter(report *syscalls.Report, out io.Writer) *Reporter {
	return &Reporter{report: report, out: out}
}

// SetVerbose enables the per-source table.
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// Print outputs the summary.
func (r *Reporter) Print() {
	if r.verbose {
		r.printSources()
	}
	r.printSaved()
}

func (r *Reporter) printSources() {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n[Sources] (%d)\n", len(r.report.Results))

	fmt.Fprintln(r.out, strings.Repeat("-", 100))
	fmt.Fprintf(r.out, "  %-40s %-8s %-10s %-8s %-20s\n", "Path", "Arch", "Checksum", "Count", "IDs")
	fmt.Fprintln(r.out, strings.Repeat("-", 100))

	for _, res := range r.report.Results {
		arch := "-"
		if res.Info != nil {
			arch = res.Info.Architecture
		}

		fmt.Fprintf(r.out, "  %-40s %-8s ", res.Path, arch)
		r.printChecksum(res.Info)
		if res.Count == 0 {
			red := color.New(color.FgRed)
			_, _ = red.Fprintf(r.out, "%-8d %-20s\n", 0, "-")
			continue
		}
		fmt.Fprintf(r.out, "%-8d %-20s\n", res.Count, fmt.Sprintf("0x%x-0x%x", res.StartID, res.LastID()))
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 100))
}

func (r *Reporter) printChecksum(info *pe.Info) {
	switch {
	case info == nil || info.Checksum == nil:
		fmt.Fprintf(r.out, "%-10s ", "-")
	case info.Checksum.Stored == 0:
		gray := color.New(color.FgHiBlack)
		_, _ = gray.Fprintf(r.out, "%-10s ", "not set")
	case info.Checksum.Valid:
		green := color.New(color.FgGreen)
		_, _ = green.Fprintf(r.out, "%-10s ", "valid")
	default:
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(r.out, "%-10s ", "INVALID")
	}
}

func (r *Reporter) printSaved() {
	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(r.out, "Saved to: %s\n", r.report.OutputPath)
	if r.verbose {
		fmt.Fprintf(r.out, "  %d syscalls, %s\n", r.report.Total, formatSize(int64(r.report.Size)))
	}
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
