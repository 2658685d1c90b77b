package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const progressRedraw = 100 * time.Millisecond

// ProgressBar renders a single-line byte counter with a bar while a
// long load runs.  It draws only when its output is a terminal; on a
// pipe or file every method is a no-op.  A nil *ProgressBar is also a
// valid no-op receiver.
type ProgressBar struct {
	out     io.Writer
	label   string
	width   int
	enabled bool

	total    int64
	done     int64
	lastDraw time.Time
}

// NewProgressBar returns a bar that draws to f when f is a terminal.
func NewProgressBar(f *os.File, label string) *ProgressBar {
	fd := int(f.Fd())
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return &ProgressBar{
		out:     f,
		label:   label,
		width:   width,
		enabled: term.IsTerminal(fd),
	}
}

// Start resets the bar for a job of total bytes.
func (p *ProgressBar) Start(total int64) {
	if p == nil || !p.enabled {
		return
	}
	p.total = total
	p.done = 0
	p.draw()
}

// Add advances the bar by n bytes, redrawing at most every 100ms.
func (p *ProgressBar) Add(n int64) {
	if p == nil || !p.enabled {
		return
	}
	p.done += n
	if time.Since(p.lastDraw) >= progressRedraw {
		p.draw()
	}
}

// Finish draws the final state and moves to a fresh line.
func (p *ProgressBar) Finish() {
	if p == nil || !p.enabled {
		return
	}
	if p.total > 0 {
		p.done = p.total
	}
	p.draw()
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) draw() {
	p.lastDraw = time.Now()

	frac := 1.0
	if p.total > 0 {
		frac = float64(p.done) / float64(p.total)
		if frac > 1 {
			frac = 1
		}
	}

	counts := fmt.Sprintf(" %3d%% %s/%s", int(frac*100), HumanBytes(p.done), HumanBytes(p.total))
	barWidth := p.width - len(p.label) - len(counts) - 4
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(frac * float64(barWidth))

	fmt.Fprintf(p.out, "\r%s [%s%s]%s",
		p.label,
		strings.Repeat("=", filled),
		strings.Repeat(" ", barWidth-filled),
		counts)
}

// HumanBytes formats n using binary units (B, KiB, MiB, …).
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
