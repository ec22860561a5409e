// Package console renders the monitor stream for a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"sersniff/internal/capture"
	"sersniff/internal/events"
	"sersniff/internal/stats"
)

// Direction colours.
const (
	ToDeviceColor   = "#ff6b6b"
	FromDeviceColor = "#4ecdc4"
	okColor         = "#7bd88f"
	errColor        = "#fc618d"
	dimColor        = "#8b8b8b"
)

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes capture events to Out and status/stats lines to Info.
// It is not safe for concurrent use; the monitor calls it from a single
// goroutine.
type Printer struct {
	Out       io.Writer
	Info      io.Writer
	Format    capture.Format
	ShowStats bool

	to, from, ok, bad, dim lipgloss.Style

	lastSummary string
	err         error
}

// NewPrinter builds a printer.  With color false every style renders
// plain text.
func NewPrinter(out, info io.Writer, format capture.Format, color bool) *Printer {
	if info == nil {
		info = out
	}
	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		Out:       out,
		Info:      info,
		Format:    format,
		ShowStats: true,
		to:        r.NewStyle().Foreground(lipgloss.Color(ToDeviceColor)),
		from:      r.NewStyle().Foreground(lipgloss.Color(FromDeviceColor)),
		ok:        r.NewStyle().Foreground(lipgloss.Color(okColor)).Bold(true),
		bad:       r.NewStyle().Foreground(lipgloss.Color(errColor)).Bold(true),
		dim:       r.NewStyle().Foreground(lipgloss.Color(dimColor)),
	}
}

// OnCapture prints one event in the configured format.
func (p *Printer) OnCapture(ev capture.Event) {
	style := p.to
	if ev.Direction() == capture.FromDevice {
		style = p.from
	}
	p.write(p.Out, paint(style, ev.Render(p.Format)))
}

// OnStatus prints a status line.
func (p *Printer) OnStatus(st events.Status) {
	mark, style := "!!", p.bad
	if st.Success {
		mark, style = "--", p.ok
	}
	line := fmt.Sprintf("[%s] %s %s", st.Time.Format(capture.TimestampLayout), mark, st.Message)
	p.write(p.Info, style.Render(line)+"\n")
}

// OnStats prints the summary line when it changed since the last one.
func (p *Printer) OnStats(s stats.Snapshot) {
	if !p.ShowStats || !s.Started {
		return
	}
	sum := s.Summary()
	if sum == p.lastSummary {
		return
	}
	p.lastSummary = sum
	p.write(p.Info, p.dim.Render(sum)+"\n")
}

// OnClear prints a marker so the reader knows counters restarted.
func (p *Printer) OnClear() {
	p.lastSummary = ""
	p.write(p.Info, p.dim.Render("-- view cleared")+"\n")
}

// Err returns the first write error, if any.
func (p *Printer) Err() error { return p.err }

func (p *Printer) write(w io.Writer, s string) {
	if p.err != nil {
		return
	}
	if _, err := io.WriteString(w, s); err != nil {
		p.err = err
	}
}

// paint styles each line separately so multi-line entries are not
// padded to a common width.
func paint(style lipgloss.Style, text string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = style.Render(l)
	}
	return strings.Join(lines, "\n") + "\n"
}
