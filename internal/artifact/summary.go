package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/gauntlet/internal/clock"
	"github.com/mrz1836/gauntlet/internal/domain"
	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// summaryTmpPattern names temp files so classification never mistakes a
// half-written summary for a real artifact.
const summaryTmpPattern = "summary.json.tmp-*"

// ReadEvents parses the unit's raw event stream. Lines that fail to
// parse individually abort the read; a half-valid stream is not a
// trustworthy basis for a summary.
func ReadEvents(layout Layout, unit domain.Unit) ([]Event, error) {
	path := layout.RawOutputPath(unit)
	f, err := os.Open(path) //#nosec G304 -- path is constructed from validated unit names
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", gauntleterrors.ErrArtifactNotFound, path)
		}
		return nil, gauntleterrors.Wrapf(err, "failed to open raw output for unit %s", unit.ID())
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)

	var events []Event
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("%w: raw output line %d: %s", gauntleterrors.ErrArtifactCorrupt, len(events)+1, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, gauntleterrors.Wrapf(err, "failed to read raw output for unit %s", unit.ID())
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: raw output is empty", gauntleterrors.ErrArtifactCorrupt)
	}
	return events, nil
}

// Summarize derives the mechanical summary from a parsed event stream
// and the terminal marker: assistant turn count, total token usage, the
// reported model, and the marker's verdict and score. It does no grading
// of its own.
func Summarize(events []Event, result *Result, clk clock.Clock) *Summary {
	summary := &Summary{
		Verdict:     result.Verdict,
		Score:       result.Score,
		GeneratedAt: clk.Now().UTC(),
	}

	for _, ev := range events {
		if ev.Type == "turn" || ev.Role == "assistant" {
			summary.Turns++
		}
		if ev.Usage != nil {
			summary.TokensUsed += ev.Usage.Total()
		}
		if summary.Model == "" && ev.Model != "" {
			summary.Model = ev.Model
		}
	}
	return summary
}

// Regenerate rebuilds summary.json for a unit from its existing raw
// output and terminal marker, without re-executing anything. The caller
// is expected to have classified the unit as results_only first.
func Regenerate(layout Layout, unit domain.Unit, clk clock.Clock) (*Summary, error) {
	resultData, err := os.ReadFile(layout.ResultPath(unit)) //#nosec G304 -- path is constructed from validated unit names
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: result marker for unit %s", gauntleterrors.ErrArtifactNotFound, unit.ID())
		}
		return nil, gauntleterrors.Wrapf(err, "failed to read result marker for unit %s", unit.ID())
	}
	result, err := ParseResult(resultData)
	if err != nil {
		return nil, err
	}

	events, err := ReadEvents(layout, unit)
	if err != nil {
		return nil, err
	}

	summary := Summarize(events, result, clk)
	if err := WriteSummary(layout, unit, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// WriteSummary persists the summary with a temp-then-rename write so a
// crash mid-write leaves a regenerable unit, never a corrupt summary
// masquerading as a valid one.
func WriteSummary(layout Layout, unit domain.Unit, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return gauntleterrors.Wrapf(err, "failed to marshal summary for unit %s", unit.ID())
	}

	path := layout.SummaryPath(unit)
	tmp, err := os.CreateTemp(filepath.Dir(path), summaryTmpPattern)
	if err != nil {
		return gauntleterrors.Wrapf(err, "failed to create temp summary for unit %s", unit.ID())
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return gauntleterrors.Wrapf(err, "failed to write summary for unit %s", unit.ID())
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return gauntleterrors.Wrapf(err, "failed to sync summary for unit %s", unit.ID())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return gauntleterrors.Wrapf(err, "failed to close summary for unit %s", unit.ID())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return gauntleterrors.Wrapf(err, "failed to rename summary for unit %s", unit.ID())
	}
	return nil
}
