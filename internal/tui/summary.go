package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/gauntlet/internal/constants"
)

// RunSummary is the final account of one run invocation, rendered after
// the worker pool drains. Counts cover the in-scope units only; the
// exit code is decided from the same numbers.
type RunSummary struct {
	InvocationID string
	CorpusSize   int
	InScope      int
	Executed     int
	Skipped      int
	Passed       int
	Failed       int
	Errored      int
	Unrecorded   int
	Elapsed      time.Duration
	ResultsDir   string
}

// Render writes the styled summary block.
func (s *RunSummary) Render(w io.Writer) {
	styles := NewOutputStyles()

	header := fmt.Sprintf("Invocation %s finished in %s", s.InvocationID, FormatDuration(s.Elapsed))
	_, _ = fmt.Fprintln(w, StyleBold.Render(header))

	scope := fmt.Sprintf("corpus %d · in scope %d · executed %d · already complete %d",
		s.CorpusSize, s.InScope, s.Executed, s.Skipped)
	_, _ = fmt.Fprintln(w, "  "+styles.Dim.Render(scope))

	_, _ = fmt.Fprintln(w, "  "+s.outcomeLine(styles))

	if s.ResultsDir != "" {
		_, _ = fmt.Fprintln(w, "  "+styles.Dim.Render("results in "+s.ResultsDir))
	}
}

// outcomeLine joins the per-outcome counts into one styled line.
// Passed and failed always appear; errored and unrecorded only when
// they would change the exit code.
func (s *RunSummary) outcomeLine(styles *OutputStyles) string {
	parts := []string{
		styles.Success.Render(FormatStatusWithIcon(constants.RunStatusPass, fmt.Sprintf("%d passed", s.Passed))),
		styles.Error.Render(FormatStatusWithIcon(constants.RunStatusFail, fmt.Sprintf("%d failed", s.Failed))),
	}

	if s.Errored > 0 {
		parts = append(parts,
			styles.Warning.Render(FormatStatusWithIcon(constants.RunStatusError, fmt.Sprintf("%d errored", s.Errored))))
	}
	if s.Unrecorded > 0 {
		parts = append(parts,
			styles.Dim.Render(fmt.Sprintf("○ %d unrecorded", s.Unrecorded)))
	}

	return strings.Join(parts, "  ")
}

// StateSummary aggregates classification counts for the status command.
type StateSummary struct {
	// Counts maps each derived state to the number of units in it.
	Counts map[constants.RunState]int
}

// Total returns the number of classified units.
func (s *StateSummary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Render writes one styled count line per derived state, in display
// order, skipping states with no units.
func (s *StateSummary) Render(w io.Writer) {
	styles := NewTableStyles()

	_, _ = fmt.Fprintln(w, StyleBold.Render(fmt.Sprintf("%d units", s.Total())))

	for _, state := range constants.AllRunStates() {
		n := s.Counts[state]
		if n == 0 {
			continue
		}
		style := lipgloss.NewStyle().Foreground(styles.StateColors[state])
		line := FormatStatusWithIcon(state, fmt.Sprintf("%-12s %d", state.String(), n))
		_, _ = fmt.Fprintln(w, "  "+style.Render(line))
	}
}
