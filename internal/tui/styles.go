// Package tui provides terminal output styling for the GAUNTLET CLI.
//
// A centralized Lip Gloss style system keeps command output consistent.
// All colors use AdaptiveColor for light and dark terminal support.
//
// # Semantic Colors
//
// Five semantic colors are exported for use across output components:
//   - ColorPrimary (Blue): scheduled work, links, primary values
//   - ColorSuccess (Green): passing units, complete artifacts
//   - ColorWarning (Yellow): retryable outcomes, attention required
//   - ColorError (Red): failing units, terminal errors
//   - ColorMuted (Gray): placeholders and secondary text
//
// # Status Icons
//
// Status displays keep triple redundancy: icon plus color plus text, so
// outcomes stay readable without color. See StatusIcon and StateIcon.
//
// # NO_COLOR Support
//
// Call CheckNoColor() at the start of commands that print styled text to
// respect the NO_COLOR environment variable. Colors are also disabled
// when TERM=dumb.
package tui

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mrz1836/gauntlet/internal/constants"
)

//nolint:gochecknoglobals // Intentional package-level constants for the styling API
var (
	// ColorPrimary is blue, used for scheduled work and primary values.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for passing units and complete artifacts.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for retryable outcomes and attention states.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for failing units and terminal errors.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for placeholders and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// StatusColors returns the semantic color for each recorded outcome.
// Errors color as warnings rather than failures: an error record means
// the harness broke, and a retry may still turn the unit into a pass.
func StatusColors() map[constants.RunStatus]lipgloss.AdaptiveColor {
	return map[constants.RunStatus]lipgloss.AdaptiveColor{
		constants.RunStatusPass:  ColorSuccess,
		constants.RunStatusFail:  ColorError,
		constants.RunStatusError: ColorWarning,
	}
}

// StateColors returns the semantic color for each derived on-disk state.
func StateColors() map[constants.RunState]lipgloss.AdaptiveColor {
	return map[constants.RunState]lipgloss.AdaptiveColor{
		constants.RunStateCompleted:   ColorSuccess,
		constants.RunStateResultsOnly: ColorWarning,
		constants.RunStateFailed:      ColorError,
		constants.RunStatePartial:     ColorWarning,
		constants.RunStateMissing:     ColorPrimary,
	}
}

// StatusIcon returns the icon for a recorded outcome.
// Used for visual status indicators in tables and summaries.
func StatusIcon(status constants.RunStatus) string {
	icons := map[constants.RunStatus]string{
		constants.RunStatusPass:  "✓", // Checkmark - agent met the success criteria
		constants.RunStatusFail:  "✗", // X mark - agent fell short
		constants.RunStatusError: "⚠", // Warning - the harness broke, retryable
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// StateIcon returns the icon for a derived on-disk state.
func StateIcon(state constants.RunState) string {
	icons := map[constants.RunState]string{
		constants.RunStateCompleted:   "✓", // Checkmark - record and artifacts agree
		constants.RunStateResultsOnly: "⚠", // Warning - summary recoverable via regen
		constants.RunStateFailed:      "✗", // X mark - terminal execution failure
		constants.RunStatePartial:     "◌", // Dashed circle - incomplete artifacts
		constants.RunStateMissing:     "○", // Empty circle - not yet run
	}
	if icon, ok := icons[state]; ok {
		return icon
	}
	return "?"
}

// IsAttentionState returns true if the derived state needs operator
// attention. Attention states are highlighted in status output; missing
// units are ordinary pending work and completed units need nothing.
func IsAttentionState(state constants.RunState) bool {
	attention := map[constants.RunState]bool{
		constants.RunStateResultsOnly: true,
		constants.RunStatePartial:     true,
		constants.RunStateFailed:      true,
	}
	return attention[state]
}

// StateAction returns the suggested CLI command for a derived state.
// Returns empty string when no operator action is needed.
func StateAction(state constants.RunState) string {
	actions := map[constants.RunState]string{
		constants.RunStateResultsOnly: "gauntlet regen",
		constants.RunStatePartial:     "gauntlet run",
		constants.RunStateFailed:      "gauntlet run --retry-errors",
	}
	if action, ok := actions[state]; ok {
		return action
	}
	return ""
}

// ActionStyle returns the style for action hints in attention states.
// Returns an unstyled style under NO_COLOR so callers can fall back to
// plain text indicators.
func ActionStyle() lipgloss.Style {
	if !HasColorSupport() {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header       lipgloss.Style
	Cell         lipgloss.Style
	Dim          lipgloss.Style
	StatusColors map[constants.RunStatus]lipgloss.AdaptiveColor
	StateColors  map[constants.RunState]lipgloss.AdaptiveColor
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		StatusColors: StatusColors(),
		StateColors:  StateColors(),
	}
}

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates common output styles using AdaptiveColor for
// light and dark terminal support.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),
		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),
		Dim: lipgloss.NewStyle().
			Foreground(ColorMuted),
	}
}

// CheckNoColor respects the NO_COLOR environment variable.
// Call this at the start of commands that output styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns true if the terminal supports colors.
// Returns false if NO_COLOR is set (any value including empty string) or
// TERM=dumb. This follows the NO_COLOR standard: https://no-color.org/
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	if os.Getenv("TERM") == "dumb" {
		return false
	}

	return true
}

// Status is satisfied by both RunStatus and RunState, the two enums
// status displays render.
type Status interface {
	String() string
}

// FormatStatusWithIcon formats a status with its icon and text for
// triple redundancy. Color is applied by the caller when rendering; this
// function provides icon plus text.
func FormatStatusWithIcon[S Status](status S, text string) string {
	var icon string

	switch s := any(status).(type) {
	case constants.RunStatus:
		icon = StatusIcon(s)
	case constants.RunState:
		icon = StateIcon(s)
	default:
		icon = "?"
	}

	return icon + " " + text
}

// stripANSI removes CSI escape sequences from a string so padding can
// work from the visible character count. Styled table cells only carry
// color sequences of the form \x1b[...letter.
func stripANSI(s string) string {
	var result strings.Builder
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if runes[i] == '\x1b' && i+1 < len(runes) && runes[i+1] == '[' {
			i += 2
			for i < len(runes) {
				c := runes[i]
				i++
				if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
					break // CSI sequence ends with a letter
				}
			}
			continue
		}
		result.WriteRune(runes[i])
		i++
	}
	return result.String()
}

// padRight pads a string to the right to reach the target width.
// Uses visible character count (excluding ANSI escape codes) so styled
// cells line up with plain ones.
func padRight(s string, width int) string {
	visible := stripANSI(s)
	runeCount := utf8.RuneCountInString(visible)
	if runeCount >= width {
		runes := []rune(s)
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-runeCount)
}

// truncateString cuts s to maxLen runes, marking the cut with "…".
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}
