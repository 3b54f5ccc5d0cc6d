// Package ui renders run progress and summaries.
//
// Rendering is advisory and must never touch timing-critical paths: the
// session invokes it only between cases, outside any timed region.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/report"
	"github.com/gobench-cli/gobench/internal/runner"
)

// Printer writes human-oriented run output.
type Printer struct {
	out   io.Writer
	tty   bool
	plain bool

	titleStyle lipgloss.Style
	okStyle    lipgloss.Style
	skipStyle  lipgloss.Style
	errStyle   lipgloss.Style
	dimStyle   lipgloss.Style
}

// NewPrinter builds a printer for the given output. Styling is enabled only
// on terminals with a usable color profile.
func NewPrinter(out *os.File) *Printer {
	tty := term.IsTerminal(int(out.Fd()))
	plain := !tty || termenv.ColorProfile() == termenv.Ascii

	p := &Printer{out: out, tty: tty, plain: plain}
	if !plain {
		p.titleStyle = lipgloss.NewStyle().Bold(true)
		p.okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		p.skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
		p.errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		p.dimStyle = lipgloss.NewStyle().Faint(true)
	}
	return p
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

// RunHeader prints the session banner with the default config and machine
// snapshot.
func (p *Printer) RunHeader(cfg config.Config, md meta.Metadata, cases int) {
	fmt.Fprintln(p.out, p.style(p.titleStyle, "starting benchmark session ..."))
	fmt.Fprintf(p.out, "config: repeat=%d number=%d warmups=%d garbage_collection=%v\n",
		cfg.Repeat, cfg.Number, cfg.Warmups, cfg.GarbageCollection)
	fmt.Fprintf(p.out, "running on %s, %s, cpus: %d, ram: %s\n",
		md.Platform, md.GoVersion, md.CPUCount, formatBytes(md.RAMBytes))
	if md.Commit != "" {
		fmt.Fprintf(p.out, "commit: %.12s (%s)\n", md.Commit, md.Branch)
	}
	fmt.Fprintf(p.out, "collected %d cases\n\n", cases)
}

// CaseResult prints one line per finished case.
func (p *Printer) CaseResult(index, total int, c discover.Case, rec record.ResultRecord) {
	prefix := fmt.Sprintf("[%d/%d] %s", index+1, total, rec.Label)

	switch rec.Outcome() {
	case record.OutcomeSkipped:
		fmt.Fprintf(p.out, "%s %s (%s)\n", prefix, p.style(p.skipStyle, "skipped"), rec.SkipReason)
	case record.OutcomeErrored:
		fmt.Fprintf(p.out, "%s %s: %s\n", prefix, p.style(p.errStyle, "error"), rec.Error)
	default:
		st := report.ComputeStats(rec.Timings)
		fmt.Fprintf(p.out, "%s %s mean=%s min=%s max=%s (n=%d)\n",
			prefix, p.style(p.okStyle, "ok"),
			formatSeconds(st.Mean), formatSeconds(st.Min), formatSeconds(st.Max), st.Samples)
	}
}

// ModuleFailures prints the load-failure summary after discovery.
func (p *Printer) ModuleFailures(failures []discover.ModuleFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", p.style(p.errStyle, fmt.Sprintf("%d module(s) failed to load:", len(failures))))
	for _, f := range failures {
		fmt.Fprintf(p.out, "  %s: %v\n", f.Module, f.Err)
	}
}

// SpecFailures prints parametrization failures.
func (p *Printer) SpecFailures(failures []discover.SpecFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", p.style(p.errStyle, fmt.Sprintf("%d benchmark(s) could not be expanded:", len(failures))))
	for _, f := range failures {
		fmt.Fprintf(p.out, "  %s: %v\n", f.Spec, f.Err)
	}
}

// Summary prints the final run counts.
func (p *Printer) Summary(sum runner.Summary) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "%s %d completed, %d skipped, %d errored in %s\n",
		p.style(p.titleStyle, "run complete:"),
		sum.Completed, sum.Skipped, sum.Errored, sum.Elapsed.Round(time.Millisecond))
	if sum.Interrupted {
		fmt.Fprintln(p.out, p.style(p.errStyle, "run interrupted; remaining cases were not executed"))
	}
}

// Results prints a stats table for completed cases.
func (p *Printer) Results(records []record.ResultRecord) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "%-48s %12s %12s %12s %12s\n", "case", "mean", "median", "min", "max")
	for _, rec := range records {
		if rec.Outcome() != record.OutcomeCompleted {
			continue
		}
		st := report.ComputeStats(rec.Timings)
		fmt.Fprintf(p.out, "%-48s %12s %12s %12s %12s\n",
			rec.Label,
			formatSeconds(st.Mean), formatSeconds(st.Median),
			formatSeconds(st.Min), formatSeconds(st.Max))
	}
}

// Comparisons prints baseline-vs-current deltas.
func (p *Printer) Comparisons(comps []report.Comparison) {
	fmt.Fprintf(p.out, "%-48s %12s %12s %9s\n", "case", "baseline", "current", "delta")
	for _, c := range comps {
		delta := fmt.Sprintf("%+.1f%%", c.MeanDeltaPct)
		if c.Faster() {
			delta = p.style(p.okStyle, delta)
		} else if c.MeanDeltaPct > 0 {
			delta = p.style(p.errStyle, delta)
		}
		fmt.Fprintf(p.out, "%-48s %12s %12s %9s\n",
			c.Label, formatSeconds(c.Baseline.Mean), formatSeconds(c.Current.Mean), delta)
	}
}

// formatSeconds renders a duration measured in seconds with a readable unit.
func formatSeconds(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes == 0 {
		return "unknown"
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
