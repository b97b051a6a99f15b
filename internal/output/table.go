package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/refresh"
)

// TableFormatter renders snapshots as an ASCII table.
type TableFormatter struct{}

// FormatSnapshot renders a snapshot as a table.
func (f *TableFormatter) FormatSnapshot(snap limits.Snapshot) (string, error) {
	return renderTable(
		refresh.FormatNumber(snap.Limit),
		refresh.FormatNumber(snap.Remaining),
		refresh.FormatDuration(snap.Reset),
	), nil
}

func renderTable(limit, remaining, reset string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Globalping API Rate Limits")
	t.AppendRow(table.Row{LabelLimit, limit})
	t.AppendRow(table.Row{LabelRemaining, remaining})
	t.AppendRow(table.Row{LabelReset, reset})
	return t.Render()
}

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// WatchRenderer draws refresh views to a terminal. It implements
// refresh.Renderer.
type WatchRenderer struct {
	Writer io.Writer
	// Clear redraws in place instead of appending.
	Clear bool
	// Interval reports the active refresh interval for the footer.
	Interval func() time.Duration

	mu sync.Mutex
}

// Render draws the view, keeping the previous values visible on error.
func (r *WatchRenderer) Render(v refresh.View) {
	if r == nil || r.Writer == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	if r.Clear {
		sb.WriteString(clearScreen)
	}

	sb.WriteString(renderTable(v.Limit, v.Remaining, v.Reset))
	sb.WriteString("\n")

	if r.Interval != nil {
		if d := r.Interval(); d > 0 {
			sb.WriteString("Refresh: every " + d.String() + "\n")
		}
	}

	if !v.UpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Updated %s\n", v.UpdatedAt.Format(time.RFC3339)))
	}
	if v.Error != "" {
		sb.WriteString(v.Error)
		sb.WriteString("\n")
	}

	_, _ = io.WriteString(r.Writer, sb.String())
}
