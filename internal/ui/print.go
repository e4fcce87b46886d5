package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Printer renders operator-facing output for deployment tasks.
// All workflow output goes through a Printer so tests can capture it
// and --quiet can silence it.
type Printer struct {
	w     io.Writer
	quiet bool
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// SetQuiet suppresses everything except errors.
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// TaskBanner prints the task name framed by rules, marking the start of a task.
//
//	------
//	deploy
//	------
func (p *Printer) TaskBanner(name string) {
	if p.quiet {
		return
	}
	rule := strings.Repeat("-", len(name))
	style := lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	fmt.Fprintf(p.w, "\n%s\n\n", styled(style, rule+"\n"+name+"\n"+rule))
}

// Command echoes a command about to run on the remote host.
//
//	$ supervisorctl update ->
func (p *Printer) Command(cmd string) {
	if p.quiet {
		return
	}
	dollar := styled(lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true), "$ ")
	body := styled(lipgloss.NewStyle().Foreground(ColorWarning).Bold(true), cmd)
	arrow := styled(lipgloss.NewStyle().Foreground(ColorError).Bold(true), " ->")
	fmt.Fprintf(p.w, "\n%s%s%s\n\n", dollar, body, arrow)
}

// Notice prints an informational step description in blue.
func (p *Printer) Notice(msg string) {
	if p.quiet {
		return
	}
	style := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	fmt.Fprintf(p.w, "\n%s\n\n", styled(style, msg))
}

// Success prints a completed-step line with timing.
func (p *Printer) Success(msg string, duration time.Duration) {
	if p.quiet {
		return
	}
	symbol := styled(lipgloss.NewStyle().Foreground(ColorSuccess), SymbolSuccess)
	timing := styled(lipgloss.NewStyle().Foreground(ColorMuted), formatDuration(duration))
	fmt.Fprintf(p.w, "%s %s %s\n", symbol, msg, timing)
}

// Skipped prints a skipped-step line with a reason.
func (p *Printer) Skipped(msg, reason string) {
	if p.quiet {
		return
	}
	symbol := styled(lipgloss.NewStyle().Foreground(ColorWarning), SymbolSkipped)
	muted := styled(lipgloss.NewStyle().Foreground(ColorMuted), "("+reason+")")
	fmt.Fprintf(p.w, "%s %s %s\n", symbol, msg, muted)
}

// Fail prints a failed-step line. Printed even in quiet mode.
func (p *Printer) Fail(msg string) {
	symbol := styled(lipgloss.NewStyle().Foreground(ColorError), SymbolFail)
	fmt.Fprintf(p.w, "%s %s\n", symbol, msg)
}

// formatDuration renders a duration as a short human-friendly string.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return fmt.Sprintf("(%dms)", d.Milliseconds())
	}
	return fmt.Sprintf("(%.1fs)", d.Seconds())
}
