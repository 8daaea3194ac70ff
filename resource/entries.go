package resource

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// FormatEntries renders a table snapshot as a bordered two-column table.
func FormatEntries(entries []Entry) string {
	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		Headers("RID", "KIND")
	for _, e := range entries {
		t.Row(strconv.FormatUint(uint64(e.ID), 10), e.Label)
	}
	return t.String()
}
