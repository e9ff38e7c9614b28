// Package output renders workflow data for the terminal.
//
// The [Printer] draws the pipeline board, instance details, template and
// instance lists, statistics and the success/error notices shown after an
// operation. Styling uses lipgloss; colors are dropped automatically when the
// writer is not a terminal, so tests can assert on plain text.
//
// Key types:
//   - [Printer] writes views to an io.Writer and implements the Notifier
//     interfaces of the transition and workflow packages
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultCardWidth is the board column width in cells.
const DefaultCardWidth = 28

// Printer renders views and notices.
type Printer struct {
	out       io.Writer
	notices   io.Writer
	styles    styles
	cardWidth int
}

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	column   lipgloss.Style
	card     lipgloss.Style
	muted    lipgloss.Style
	label    lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	action   lipgloss.Style
	status   map[string]lipgloss.Style
	tableHdr lipgloss.Style
	tableRow lipgloss.Style
}

// NewPrinter creates a [Printer] writing views to stdout and notices to
// stderr.
func NewPrinter() *Printer {
	p := NewPrinterWithWriter(os.Stdout)
	p.notices = os.Stderr
	return p
}

// NewPrinterWithWriter creates a [Printer] writing everything to w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:       w,
		notices:   w,
		styles:    newStyles(r),
		cardWidth: DefaultCardWidth,
	}
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header:  r.NewStyle().Bold(true),
		column:  r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		card:    r.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("8")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		label:   r.NewStyle().Bold(true).Width(12),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		action:  r.NewStyle().Foreground(lipgloss.Color("14")),
		status: map[string]lipgloss.Style{
			"active":    r.NewStyle().Foreground(lipgloss.Color("10")),
			"paused":    r.NewStyle().Foreground(lipgloss.Color("11")),
			"completed": r.NewStyle().Foreground(lipgloss.Color("12")),
			"cancelled": r.NewStyle().Foreground(lipgloss.Color("9")),
		},
		tableHdr: r.NewStyle().Bold(true).Padding(0, 1),
		tableRow: r.NewStyle().Padding(0, 1),
	}
}

// SetCardWidth sets the board column width. Values below 12 are ignored.
func (p *Printer) SetCardWidth(width int) {
	if width >= 12 {
		p.cardWidth = width
	}
}

// Success prints a success notice.
func (p *Printer) Success(message string) {
	fmt.Fprintln(p.notices, p.styles.success.Render("✓ "+message))
}

// Error prints an error notice.
func (p *Printer) Error(message string) {
	fmt.Fprintln(p.notices, p.styles.failure.Render("✗ "+message))
}

// Info prints a plain notice.
func (p *Printer) Info(message string) {
	fmt.Fprintln(p.notices, p.styles.muted.Render(message))
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Printer) statusText(label string) string {
	if st, ok := p.styles.status[strings.ToLower(label)]; ok {
		return st.Render(label)
	}
	return label
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// progressBar renders a ten-cell bar for a 0..100 percentage.
func progressBar(percent int) string {
	filled := percent / 10
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "]"
}
