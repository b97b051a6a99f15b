package output

import (
	"fmt"
	"strings"

	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/refresh"
)

// MarkdownFormatter renders snapshots as a markdown table.
type MarkdownFormatter struct{}

// FormatSnapshot renders a snapshot as Markdown.
func (f *MarkdownFormatter) FormatSnapshot(snap limits.Snapshot) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Globalping API Rate Limits\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", LabelLimit, escapeMarkdownCell(refresh.FormatNumber(snap.Limit))))
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", LabelRemaining, escapeMarkdownCell(refresh.FormatNumber(snap.Remaining))))
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", LabelReset, escapeMarkdownCell(refresh.FormatDuration(snap.Reset))))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
