package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"

	"github.com/mrz1836/gauntlet/internal/domain"
)

// maxEventLineSize bounds a single raw event line (1MB). Agent events
// embed whole file contents, so the default scanner limit is too small.
const maxEventLineSize = 1024 * 1024

// Snapshot is the well-typed presence-and-validity picture of one unit's
// artifacts, taken in a single pass. Classification is a pure function
// over this struct; all I/O happens here.
type Snapshot struct {
	// DirExists reports whether the unit's run directory exists.
	DirExists bool

	// ResultPresent and ResultValid cover the terminal marker.
	ResultPresent bool
	ResultValid   bool

	// Result is the parsed marker when ResultValid.
	Result *Result

	// RawPresent and RawValid cover the raw event stream. Valid means
	// non-empty with every non-blank line parsing as a JSON object.
	RawPresent bool
	RawValid   bool

	// SummaryPresent and SummaryValid cover the derived summary.
	SummaryPresent bool
	SummaryValid   bool

	// Summary is the parsed summary when SummaryValid.
	Summary *Summary
}

// Take probes the unit's run directory and returns its snapshot.
// Read failures surface as absent or invalid artifacts rather than
// errors; a directory we cannot read is a directory we cannot trust.
func Take(layout Layout, unit domain.Unit) Snapshot {
	var snap Snapshot

	info, err := os.Stat(layout.RunDir(unit))
	if err != nil || !info.IsDir() {
		return snap
	}
	snap.DirExists = true

	if data, err := os.ReadFile(layout.ResultPath(unit)); err == nil { //#nosec G304 -- path is constructed from validated unit names
		snap.ResultPresent = true
		if result, parseErr := ParseResult(data); parseErr == nil {
			snap.ResultValid = true
			snap.Result = result
		}
	}

	snap.RawPresent, snap.RawValid = probeRawOutput(layout.RawOutputPath(unit))

	if data, err := os.ReadFile(layout.SummaryPath(unit)); err == nil { //#nosec G304 -- path is constructed from validated unit names
		snap.SummaryPresent = true
		if summary, parseErr := ParseSummary(data); parseErr == nil {
			snap.SummaryValid = true
			snap.Summary = summary
		}
	}

	return snap
}

// probeRawOutput checks the event stream for presence and line-level
// JSON validity without retaining the events.
func probeRawOutput(path string) (present, valid bool) {
	f, err := os.Open(path) //#nosec G304 -- path is constructed from validated unit names
	if err != nil {
		return false, false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)

	lines := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' || !json.Valid(line) {
			return true, false
		}
		lines++
	}
	if scanner.Err() != nil {
		return true, false
	}
	return true, lines > 0
}
