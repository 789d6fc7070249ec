package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/tasks"
)

// LineWidth is the fixed width of the progress line, so a shorter line fully covers a longer one.
const LineWidth = 120

// ProgressLine formats an update as `[i/total] STATUS TAG reference`, cut or padded to [LineWidth].
func ProgressLine(u tasks.ProgressUpdate) string {
	line := fmt.Sprintf("[%d/%d] %-9s %-6s %s", u.Step, u.Total, u.Status, u.CacheTag(), u.Reference)
	line = shared.Truncate(line, LineWidth)
	if n := len([]rune(line)); n < LineWidth {
		line += strings.Repeat(" ", LineWidth-n)
	}
	return line
}

// ProgressRenderer redraws one terminal line per update.
type ProgressRenderer struct {
	w     io.Writer
	color bool
	drawn bool
}

// NewProgressRenderer writes to w. With color set, the status label is styled.
func NewProgressRenderer(w io.Writer, color bool) *ProgressRenderer {
	return &ProgressRenderer{w: w, color: color}
}

// Render overwrites the current line with u.
func (r *ProgressRenderer) Render(u tasks.ProgressUpdate) {
	line := ProgressLine(u)
	if r.color {
		label := fmt.Sprintf("%-9s", u.Status)
		line = strings.Replace(line, label, styles.statusStyle(u.Status).Render(label), 1)
	}
	fmt.Fprint(r.w, "\r"+line)
	r.drawn = true
}

// Consume renders updates until ch is closed, then ends the line.
func (r *ProgressRenderer) Consume(ch <-chan tasks.ProgressUpdate) {
	for u := range ch {
		r.Render(u)
	}
	r.Done()
}

// Done moves past the progress line if anything was drawn.
func (r *ProgressRenderer) Done() {
	if r.drawn {
		fmt.Fprintln(r.w)
		r.drawn = false
	}
}
