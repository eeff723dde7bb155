package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
)

const (
	historyTimeLayout = "2006-01-02 15:04"
	historyTextWidth  = 48
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	failedStyle    = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	succeededStyle = cellStyle.Foreground(lipgloss.Color("#10B981"))
)

// statusColumn is the index of the status column in the history table.
const statusColumn = 2

// History writes records as a table, newest first as given.
func History(w io.Writer, records []*statestore.Record) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "No sessions recorded.\n")
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow(rec))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "VARIANT", "STATUS", "LENGTH", "SIZE", "RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(records) {
				switch records[row].Status {
				case "failed":
					return failedStyle
				case "succeeded":
					return succeededStyle
				}
			}
			return cellStyle
		})

	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

func historyRow(rec *statestore.Record) []string {
	result := rec.ResponseText
	if rec.FailureKind != "" {
		result = rec.FailureKind + ": " + rec.FailureReason
	}
	return []string{
		rec.StartedAt.Local().Format(historyTimeLayout),
		rec.Variant,
		rec.Status,
		FormatDuration(msDuration(rec.DurationMs)),
		FormatBytes(rec.Bytes),
		Truncate(singleLine(result), historyTextWidth),
	}
}

// Truncate shortens s to at most n runes, ending with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
