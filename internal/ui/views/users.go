package views

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"

	"ghsearch/internal/domain"
)

const (
	loginWidth = 24
	idWidth    = 12
	minURL     = 20
)

// UserColumns lays out the result table for a terminal of the given width
func UserColumns(width int) []table.Column {
	// Main padding and cell padding
	urlWidth := width - 4 - loginWidth - idWidth - 6
	if urlWidth < minURL {
		urlWidth = minURL
	}
	return []table.Column{
		{Title: "Login", Width: loginWidth},
		{Title: "ID", Width: idWidth},
		{Title: "Avatar URL", Width: urlWidth},
	}
}

// UserRows converts users to table rows, preserving order
func UserRows(users []domain.UserSummary) []table.Row {
	rows := make([]table.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, table.Row{u.Login, strconv.FormatInt(u.ID, 10), u.AvatarURL})
	}
	return rows
}

// TableStyles adapts the renderer styles to bubbles/table
func (s *Styles) TableStyles() table.Styles {
	ts := table.DefaultStyles()
	ts.Header = s.TableHeader.Padding(0, 1)
	ts.Cell = s.TableCell.Padding(0, 1)
	ts.Selected = s.Selected
	return ts
}
