package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// ColumnDef defines a column in an AnnotationTable.
type ColumnDef struct {
	Name       string         // Column name (for width lookups, not displayed)
	WidthRatio float64        // Proportion of available width (0.0-1.0), 0 means fixed width
	MinWidth   int            // Minimum width in characters
	MaxWidth   int            // Maximum width (0 = no limit)
	Align      Alignment      // Text alignment
	Style      lipgloss.Style // Style to apply to cells in this column
}

// Standard columns for annotation listings.
var (
	// ColPin is the pin-number column (fixed width, right-aligned).
	ColPin = ColumnDef{
		Name:     "pin",
		MinWidth: 4,
		MaxWidth: 6,
		Align:    AlignRight,
	}

	// ColStatus is the status symbol column.
	ColStatus = ColumnDef{
		Name:     "status",
		MinWidth: 2,
		MaxWidth: 2,
		Align:    AlignLeft,
	}

	// ColComment is the comment body column (flexible width).
	ColComment = ColumnDef{
		Name:       "comment",
		WidthRatio: 0.60,
		MinWidth:   30,
		MaxWidth:   100,
		Align:      AlignLeft,
	}

	// ColAnchor is the anchor excerpt column (quote text or region).
	ColAnchor = ColumnDef{
		Name:       "anchor",
		WidthRatio: 0.40,
		MinWidth:   15,
		MaxWidth:   60,
		Align:      AlignLeft,
		Style:      Muted,
	}
)

// AnnotationLayout is the standard listing layout: [pin, status, comment, anchor].
var AnnotationLayout = []ColumnDef{ColPin, ColStatus, ColComment, ColAnchor}

// AnnotationTable renders annotation listings with width-aware columns.
type AnnotationTable struct {
	display *DisplayContext
	columns []ColumnDef
	rows    [][]string
}

// NewAnnotationTable creates a table for the given display context and layout.
func NewAnnotationTable(display *DisplayContext, columns []ColumnDef) *AnnotationTable {
	return &AnnotationTable{
		display: display,
		columns: columns,
	}
}

// AddRow adds a row; cells beyond the layout are dropped.
func (t *AnnotationTable) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// ContentWidth returns the calculated width for a column by name, so
// callers can truncate content to what will actually fit.
func (t *AnnotationTable) ContentWidth(columnName string) int {
	widths := t.calculateWidths()
	for i, col := range t.columns {
		if col.Name == columnName {
			return widths[i]
		}
	}
	return 60
}

// calculateWidths computes column widths based on terminal size and column
// definitions: fixed columns first, then the remainder split by ratio.
func (t *AnnotationTable) calculateWidths() []int {
	widths := make([]int, len(t.columns))

	var totalRatio float64
	var fixedWidth int
	const columnPadding = 2

	for i, col := range t.columns {
		if col.WidthRatio == 0 {
			widths[i] = col.MinWidth
			if col.MaxWidth > 0 && widths[i] > col.MaxWidth {
				widths[i] = col.MaxWidth
			}
			fixedWidth += widths[i]
		} else {
			totalRatio += col.WidthRatio
		}
	}

	totalPadding := (len(t.columns) - 1) * columnPadding
	leftMargin := 2
	available := t.display.TermWidth - fixedWidth - totalPadding - leftMargin
	if available < 0 {
		available = 0
	}

	for i, col := range t.columns {
		if col.WidthRatio > 0 {
			width := int(float64(available) * col.WidthRatio / totalRatio)
			if width < col.MinWidth {
				width = col.MinWidth
			}
			if col.MaxWidth > 0 && width > col.MaxWidth {
				width = col.MaxWidth
			}
			widths[i] = width
		}
	}

	return widths
}

// Render generates the table output as a string.
func (t *AnnotationTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := t.calculateWidths()

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(true).
		BorderColumn(false).
		BorderStyle(Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}

			colDef := t.columns[col]
			style := colDef.Style
			if style.Value() == "" {
				style = lipgloss.NewStyle()
			}
			style = style.Width(widths[col])

			switch colDef.Align {
			case AlignRight:
				style = style.Align(lipgloss.Right)
			case AlignCenter:
				style = style.Align(lipgloss.Center)
			default:
				style = style.Align(lipgloss.Left)
			}

			if col < len(t.columns)-1 {
				style = style.PaddingRight(2)
			}

			return style
		}).
		Rows(t.rows...)

	return tbl.Render()
}

// TruncateWithEllipsis truncates a string to maxLen, adding ellipsis if
// needed. It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}

	truncated := s[:maxLen-3]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// FormatRowNum formats a row number with consistent width.
func FormatRowNum(num, maxNum int) string {
	width := len(fmt.Sprintf("%d", maxNum))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%*d", width, num)
}
