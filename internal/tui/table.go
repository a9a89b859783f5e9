package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mrz1836/gauntlet/internal/constants"
)

// TableColumn defines a column in a fixed-width table.
type TableColumn struct {
	Name  string
	Width int
	Align Alignment
}

// Alignment defines text alignment in a column.
type Alignment int

// Alignment constants.
const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Table provides styled fixed-width table rendering. Commands with a
// small, known vocabulary of cell values use this directly; the status
// command uses UnitTable, which sizes columns from content instead.
type Table struct {
	w       io.Writer
	styles  *TableStyles
	columns []TableColumn
}

// NewTable creates a new table with the given columns.
func NewTable(w io.Writer, columns []TableColumn) *Table {
	return &Table{
		w:       w,
		styles:  NewTableStyles(),
		columns: columns,
	}
}

// WriteHeader writes the table header row.
func (t *Table) WriteHeader() {
	header := ""
	for i, col := range t.columns {
		if i > 0 {
			header += " "
		}
		format := t.formatSpec(col)
		header += fmt.Sprintf(format, col.Name)
	}
	_, _ = fmt.Fprintln(t.w, t.styles.Header.Render(header))
}

// WriteRow writes a data row to the table.
func (t *Table) WriteRow(values ...string) {
	row := ""
	for i, col := range t.columns {
		if i > 0 {
			row += " "
		}
		format := t.formatSpec(col)
		value := ""
		if i < len(values) {
			value = values[i]
		}
		// Truncate if needed (require Width > 1 to avoid slice bounds panic)
		if col.Width > 1 && len(value) > col.Width {
			value = value[:col.Width-1] + "…"
		}
		row += fmt.Sprintf(format, value)
	}
	_, _ = fmt.Fprintln(t.w, row)
}

// WriteStyledRow writes a data row with one styled cell. The plain value
// is the styled value without escape codes; the difference widens the
// format spec so later columns stay aligned.
func (t *Table) WriteStyledRow(values []string, styledIndex int, styledValue, plainValue string) {
	row := ""
	for i, col := range t.columns {
		if i > 0 {
			row += " "
		}
		format := t.formatSpec(col)

		if i == styledIndex {
			offset := len(styledValue) - len(plainValue)
			adjustedFormat := t.formatSpecWithOffset(col, offset)
			row += fmt.Sprintf(adjustedFormat, styledValue)
		} else {
			value := ""
			if i < len(values) {
				value = values[i]
			}
			if col.Width > 1 && len(value) > col.Width {
				value = value[:col.Width-1] + "…"
			}
			row += fmt.Sprintf(format, value)
		}
	}
	_, _ = fmt.Fprintln(t.w, row)
}

// formatSpec returns the format specifier for a column.
func (t *Table) formatSpec(col TableColumn) string {
	switch col.Align {
	case AlignRight:
		return fmt.Sprintf("%%%ds", col.Width)
	case AlignLeft, AlignCenter:
		return fmt.Sprintf("%%-%ds", col.Width)
	default:
		return fmt.Sprintf("%%-%ds", col.Width)
	}
}

// formatSpecWithOffset returns the format specifier with width adjusted
// for ANSI codes.
func (t *Table) formatSpecWithOffset(col TableColumn, offset int) string {
	width := col.Width + offset
	switch col.Align {
	case AlignRight:
		return fmt.Sprintf("%%%ds", width)
	case AlignLeft, AlignCenter:
		return fmt.Sprintf("%%-%ds", width)
	default:
		return fmt.Sprintf("%%-%ds", width)
	}
}

// ColorOffset calculates the difference in visible vs actual length due
// to ANSI codes.
func ColorOffset(rendered, plain string) int {
	return len(rendered) - len(plain)
}

// ========================================
// UnitTable - Corpus Classification Display
// ========================================

// noCell marks a cell with no value, such as the outcome of a unit that
// never ran.
const noCell = "-"

// TerminalWidthNarrow is the threshold below which the unit table
// switches to abbreviated headers.
const TerminalWidthNarrow = 100

// MinColumnWidths defines the minimum width for each unit table column.
// Used to ensure readability even with short content.
//
//nolint:gochecknoglobals // Intentional package-level constant for unit table minimum widths
var MinColumnWidths = UnitColumnWidths{
	Unit:     12,
	State:    14,
	Status:   6,
	Duration: 8,
	Action:   10,
}

// UnitColumnWidths holds the widths for each unit table column.
type UnitColumnWidths struct {
	Unit     int
	State    int
	Status   int
	Duration int
	Action   int
}

// UnitRow represents one unit in the classification table.
type UnitRow struct {
	// UnitID is the canonical identifier, tier/subtest/run-N.
	UnitID string

	// State is the derived on-disk state for the unit.
	State constants.RunState

	// Status and Duration come from the unit's latest checkpoint record
	// and stay zero when the unit has none.
	Status   constants.RunStatus
	Duration time.Duration
}

// UnitTableConfig holds layout configuration for the unit table.
type UnitTableConfig struct {
	// TerminalWidth is the detected terminal width (or forced width for testing).
	TerminalWidth int
	// Narrow indicates whether to use abbreviated headers.
	Narrow bool
}

// UnitTableOption is a functional option for UnitTable configuration.
type UnitTableOption func(*UnitTable)

// WithTerminalWidth sets a specific terminal width (useful for testing).
func WithTerminalWidth(width int) UnitTableOption {
	return func(t *UnitTable) {
		t.config.TerminalWidth = width
		t.config.Narrow = width > 0 && width < TerminalWidthNarrow
	}
}

// UnitTable renders corpus classification in a formatted table, one row
// per unit with state, recorded outcome, duration, and suggested action.
type UnitTable struct {
	rows   []UnitRow
	styles *TableStyles
	config UnitTableConfig
}

// NewUnitTable creates a new unit table with the given rows.
// Automatically detects terminal width and narrow mode.
func NewUnitTable(rows []UnitRow, opts ...UnitTableOption) *UnitTable {
	t := &UnitTable{
		rows:   rows,
		styles: NewTableStyles(),
		config: UnitTableConfig{
			TerminalWidth: detectTerminalWidth(),
		},
	}

	t.config.Narrow = t.config.TerminalWidth > 0 && t.config.TerminalWidth < TerminalWidthNarrow

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// detectTerminalWidth returns the current terminal width.
// Returns 80 if detection fails (assume standard terminal).
func detectTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

// IsNarrow returns true if the terminal is in narrow mode.
func (t *UnitTable) IsNarrow() bool {
	return t.config.Narrow
}

// Headers returns the column headers, abbreviated if in narrow mode.
func (t *UnitTable) Headers() []string {
	if t.config.Narrow {
		return []string{"UNIT", "STATE", "STAT", "DUR", "ACT"}
	}
	return []string{"UNIT", "STATE", "STATUS", "DURATION", "ACTION"}
}

// Render writes the formatted table to the writer.
// Uses bold header styling and content-derived column widths.
func (t *UnitTable) Render(w io.Writer) error {
	headers := t.Headers()
	widths := t.calculateColumnWidths()
	widthsSlice := []int{widths.Unit, widths.State, widths.Status, widths.Duration, widths.Action}

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = t.styles.Header.Render(padRight(h, widthsSlice[i]))
	}
	_, err := fmt.Fprintln(w, strings.Join(headerParts, "  "))
	if err != nil {
		return err
	}

	for _, row := range t.rows {
		rowCells := []string{
			padRight(truncateString(row.UnitID, widths.Unit), widths.Unit),
			t.renderStateCellPadded(row.State, widths.State),
			t.renderStatusCellPadded(row.Status, widths.Status),
			padRight(t.durationCell(row.Duration), widths.Duration),
			t.renderActionCellPadded(row.State, widths.Action),
		}
		_, err = fmt.Fprintln(w, strings.Join(rowCells, "  "))
		if err != nil {
			return err
		}
	}

	return nil
}

// ToTableData converts the table to Output.Table() compatible format.
// Cells carry no escape codes, so the result is safe for JSON transport.
func (t *UnitTable) ToTableData() ([]string, [][]string) {
	headers := t.Headers()

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = []string{
			row.UnitID,
			t.stateCellPlain(row.State),
			t.statusCellPlain(row.Status),
			t.durationCell(row.Duration),
			t.actionCellPlain(row.State),
		}
	}
	return headers, rows
}

// calculateColumnWidths sizes each column from headers, minimums, and
// row content, then constrains the result to the terminal width.
// Uses utf8.RuneCountInString for proper Unicode handling.
func (t *UnitTable) calculateColumnWidths() UnitColumnWidths {
	widthsSlice := t.initializeMinWidths()
	t.updateWidthsFromContent(widthsSlice)
	widthsSlice = t.constrainToTerminalWidth(widthsSlice)

	return UnitColumnWidths{
		Unit:     widthsSlice[0],
		State:    widthsSlice[1],
		Status:   widthsSlice[2],
		Duration: widthsSlice[3],
		Action:   widthsSlice[4],
	}
}

// initializeMinWidths creates the initial width slice using minimum
// widths and headers.
func (t *UnitTable) initializeMinWidths() []int {
	headers := t.Headers()
	return []int{
		max(MinColumnWidths.Unit, utf8.RuneCountInString(headers[0])),
		max(MinColumnWidths.State, utf8.RuneCountInString(headers[1])),
		max(MinColumnWidths.Status, utf8.RuneCountInString(headers[2])),
		max(MinColumnWidths.Duration, utf8.RuneCountInString(headers[3])),
		max(MinColumnWidths.Action, utf8.RuneCountInString(headers[4])),
	}
}

// updateWidthsFromContent expands widths based on actual row content.
func (t *UnitTable) updateWidthsFromContent(widths []int) {
	for _, row := range t.rows {
		if w := utf8.RuneCountInString(row.UnitID); w > widths[0] {
			widths[0] = w
		}

		if w := utf8.RuneCountInString(t.stateCellPlain(row.State)); w > widths[1] {
			widths[1] = w
		}

		if w := utf8.RuneCountInString(t.statusCellPlain(row.Status)); w > widths[2] {
			widths[2] = w
		}

		if w := utf8.RuneCountInString(t.durationCell(row.Duration)); w > widths[3] {
			widths[3] = w
		}

		if w := utf8.RuneCountInString(t.actionCellPlain(row.State)); w > widths[4] {
			widths[4] = w
		}
	}
}

// constrainToTerminalWidth reduces column widths to fit within the
// terminal. Only the unit column shrinks: unit IDs truncate with an
// ellipsis, while the state, status and action cells are fixed
// vocabulary that must stay whole.
func (t *UnitTable) constrainToTerminalWidth(widths []int) []int {
	// 5 columns with 2-space separators = 4 separators * 2 chars
	const separatorWidth = 8
	totalWidth := separatorWidth
	for _, w := range widths {
		totalWidth += w
	}

	if t.config.TerminalWidth <= 0 || totalWidth <= t.config.TerminalWidth {
		return widths
	}

	overflow := totalWidth - t.config.TerminalWidth

	result := make([]int, len(widths))
	copy(result, widths)

	maxReduction := result[0] - MinColumnWidths.Unit
	if maxReduction > 0 {
		result[0] -= min(overflow, maxReduction)
	}

	return result
}

// stateCellPlain creates the state cell content without ANSI codes.
// Used for data transfer and width calculations.
func (t *UnitTable) stateCellPlain(state constants.RunState) string {
	return StateIcon(state) + " " + state.String()
}

// statusCellPlain creates the outcome cell content without ANSI codes.
// Units with no record show a placeholder.
func (t *UnitTable) statusCellPlain(status constants.RunStatus) string {
	if status == "" {
		return noCell
	}
	return StatusIcon(status) + " " + status.String()
}

// durationCell formats the recorded wall-clock duration for display.
func (t *UnitTable) durationCell(d time.Duration) string {
	if d <= 0 {
		return noCell
	}
	return FormatDuration(d)
}

// actionCellPlain creates the action cell content without ANSI codes.
// For attention states in NO_COLOR mode, a "(!)" prefix keeps the
// highlight visible.
func (t *UnitTable) actionCellPlain(state constants.RunState) string {
	action := StateAction(state)
	if action == "" {
		return noCell
	}
	if IsAttentionState(state) && !HasColorSupport() {
		return "(!) " + action
	}
	return action
}

// renderStateCellPadded renders the state cell with icon, color, and
// padding from the visible width.
func (t *UnitTable) renderStateCellPadded(state constants.RunState, width int) string {
	plainText := t.stateCellPlain(state)
	plainWidth := utf8.RuneCountInString(plainText)

	style := lipgloss.NewStyle().Foreground(t.styles.StateColors[state])
	styledText := StateIcon(state) + " " + style.Render(state.String())

	if plainWidth >= width {
		return styledText
	}
	return styledText + strings.Repeat(" ", width-plainWidth)
}

// renderStatusCellPadded renders the outcome cell with icon, color, and
// padding from the visible width.
func (t *UnitTable) renderStatusCellPadded(status constants.RunStatus, width int) string {
	plainText := t.statusCellPlain(status)
	if status == "" {
		return padRight(plainText, width)
	}
	plainWidth := utf8.RuneCountInString(plainText)

	style := lipgloss.NewStyle().Foreground(t.styles.StatusColors[status])
	styledText := StatusIcon(status) + " " + style.Render(status.String())

	if plainWidth >= width {
		return styledText
	}
	return styledText + strings.Repeat(" ", width-plainWidth)
}

// renderActionCellPadded renders the action cell with warning styling
// for attention states and padding from the visible width.
func (t *UnitTable) renderActionCellPadded(state constants.RunState, width int) string {
	plainText := t.actionCellPlain(state)
	plainWidth := utf8.RuneCountInString(plainText)

	styledText := plainText
	action := StateAction(state)
	if action != "" && IsAttentionState(state) && HasColorSupport() {
		styledText = ActionStyle().Render(action)
	}

	if plainWidth >= width {
		return styledText
	}
	return styledText + strings.Repeat(" ", width-plainWidth)
}
