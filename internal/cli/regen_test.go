package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gauntlet/internal/artifact"
	"github.com/mrz1836/gauntlet/internal/checkpoint"
	"github.com/mrz1836/gauntlet/internal/constants"
	"github.com/mrz1836/gauntlet/internal/domain"
	"github.com/mrz1836/gauntlet/internal/errors"
	"github.com/mrz1836/gauntlet/internal/flock"
)

// regenFixture is a three-unit corpus where one unit is complete, one is
// recoverable from raw output, and one has a raw stream that probes as
// JSON but will not unmarshal into events.
type regenFixture struct {
	corpusFile string
	resultsDir string
	recovered  domain.Unit
	corrupt    domain.Unit
}

// newRegenFixture writes the corpus manifest and results tree under a
// temp directory.
func newRegenFixture(t *testing.T) regenFixture {
	t.Helper()

	tmp := t.TempDir()
	corpusFile := filepath.Join(tmp, "corpus.yaml")
	manifest := `version: "1"
default_runs: 1
tiers:
  - name: core
    subtests:
      - name: alpha
        runs: 2
      - name: beta
`
	require.NoError(t, os.WriteFile(corpusFile, []byte(manifest), 0o600))

	resultsDir := filepath.Join(tmp, "results")
	layout := artifact.NewLayout(resultsDir)

	// core/alpha/run-1: complete, nothing to recover.
	completed := domain.Unit{Tier: "core", Subtest: "alpha", Run: 1}
	require.NoError(t, layout.EnsureRunDir(completed))
	writeArtifactFile(t, layout.ResultPath(completed),
		`{"verdict":"pass","exit_code":0,"started_at":"2026-08-24T10:00:00Z","completed_at":"2026-08-24T10:05:00Z","duration_seconds":300}`)
	writeArtifactFile(t, layout.RawOutputPath(completed),
		`{"type":"result","subtype":"success"}`+"\n")
	writeArtifactFile(t, layout.SummaryPath(completed),
		`{"verdict":"pass","turns":1,"tokens_used":100,"generated_at":"2026-08-24T10:05:01Z"}`)

	// core/alpha/run-2: finished run with raw events but no summary.
	recovered := domain.Unit{Tier: "core", Subtest: "alpha", Run: 2}
	require.NoError(t, layout.EnsureRunDir(recovered))
	writeArtifactFile(t, layout.ResultPath(recovered),
		`{"verdict":"pass","exit_code":0,"started_at":"2026-08-24T11:00:00Z","completed_at":"2026-08-24T11:04:00Z","duration_seconds":240,"score":0.8}`)
	writeArtifactFile(t, layout.RawOutputPath(recovered),
		`{"type":"system","model":"agent-xl"}
{"type":"turn","role":"assistant","usage":{"input_tokens":1200,"output_tokens":300}}
{"type":"turn","role":"assistant","usage":{"input_tokens":800,"output_tokens":200}}
{"type":"result","subtype":"success"}
`)

	// core/beta/run-1: the raw stream is line-valid JSON, so the unit
	// classifies as recoverable, but the typed event parse rejects it.
	corrupt := domain.Unit{Tier: "core", Subtest: "beta", Run: 1}
	require.NoError(t, layout.EnsureRunDir(corrupt))
	writeArtifactFile(t, layout.ResultPath(corrupt),
		`{"verdict":"pass","exit_code":0,"started_at":"2026-08-24T12:00:00Z","completed_at":"2026-08-24T12:02:00Z","duration_seconds":120}`)
	writeArtifactFile(t, layout.RawOutputPath(corrupt), `{"type":42}`+"\n")

	return regenFixture{
		corpusFile: corpusFile,
		resultsDir: resultsDir,
		recovered:  recovered,
		corrupt:    corrupt,
	}
}

func TestNewRegenCmd(t *testing.T) {
	t.Parallel()

	cmd := newRegenCmd()
	assert.Equal(t, "regen", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "Nothing is ever re-executed")

	for _, name := range []string{"corpus", "results-dir", "checkpoint"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestRunRegenWithOutput_JSON(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	fx := newRegenFixture(t)

	var buf bytes.Buffer
	flags := &regenFlags{corpusFile: fx.corpusFile, resultsDir: fx.resultsDir}
	require.NoError(t, runRegenWithOutput(context.Background(), &buf, flags, OutputJSON))

	var report regenReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, []string{"core/beta/run-1"}, report.Failed)

	require.Len(t, report.Recovered, 1)
	rec := report.Recovered[0]
	assert.Equal(t, "core/alpha/run-2", rec.ID)
	assert.Equal(t, constants.RunStatusPass, rec.Status)
	assert.Equal(t, 0, rec.ExitCode)
	assert.InDelta(t, 240.0, rec.DurationSeconds, 0.001)
	require.NotNil(t, rec.Score)
	assert.InDelta(t, 0.8, *rec.Score, 0.001)
	assert.Equal(t, 2, rec.Turns)
	assert.Equal(t, 2500, rec.TokensUsed)
}

func TestRunRegenWithOutput_WritesSummaryAndCheckpoint(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	fx := newRegenFixture(t)

	var buf bytes.Buffer
	flags := &regenFlags{corpusFile: fx.corpusFile, resultsDir: fx.resultsDir}
	require.NoError(t, runRegenWithOutput(context.Background(), &buf, flags, OutputJSON))

	// The rebuilt summary is durable and parseable.
	layout := artifact.NewLayout(fx.resultsDir)
	data, err := os.ReadFile(layout.SummaryPath(fx.recovered)) //#nosec G304 -- path is constructed from test temp dir
	require.NoError(t, err)

	var summary artifact.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "pass", summary.Verdict)
	require.NotNil(t, summary.Score)
	assert.InDelta(t, 0.8, *summary.Score, 0.001)
	assert.Equal(t, 2, summary.Turns)
	assert.Equal(t, 2500, summary.TokensUsed)
	assert.Equal(t, "agent-xl", summary.Model)
	assert.False(t, summary.GeneratedAt.IsZero())

	// The corrupt unit got no summary.
	_, err = os.Stat(layout.SummaryPath(fx.corrupt))
	assert.True(t, os.IsNotExist(err))

	// The recovered record is checkpointed under a fresh invocation.
	store, err := checkpoint.NewFileStore(filepath.Join(fx.resultsDir, constants.CheckpointFileName))
	require.NoError(t, err)
	cp, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, cp.Results, 1)
	assert.Equal(t, "core/alpha/run-2", cp.Results[0].ID)
	assert.Equal(t, constants.RunStatusPass, cp.Results[0].Status)
	assert.NotEmpty(t, cp.Config.InvocationID)
}

func TestRunRegenWithOutput_Text(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	fx := newRegenFixture(t)

	var buf bytes.Buffer
	flags := &regenFlags{corpusFile: fx.corpusFile, resultsDir: fx.resultsDir}
	require.NoError(t, runRegenWithOutput(context.Background(), &buf, flags, OutputText))

	output := buf.String()
	assert.Contains(t, output, "UNIT")
	assert.Contains(t, output, "core/alpha/run-2")
	assert.Contains(t, output, "0.80")
	assert.Contains(t, output, "core/beta/run-1: raw output would not summarize")
	assert.Contains(t, output, "Recovered 1 of 2 candidate units")
}

func TestRunRegenWithOutput_NoCandidates(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	tmp := t.TempDir()
	corpusFile := filepath.Join(tmp, "corpus.yaml")
	manifest := `tiers:
  - name: core
    subtests:
      - name: alpha
        runs: 1
`
	require.NoError(t, os.WriteFile(corpusFile, []byte(manifest), 0o600))

	var buf bytes.Buffer
	flags := &regenFlags{corpusFile: corpusFile, resultsDir: filepath.Join(tmp, "results")}
	require.NoError(t, runRegenWithOutput(context.Background(), &buf, flags, OutputText))

	assert.Contains(t, buf.String(), "No units need summary regeneration")
}

func TestRunRegenWithOutput_CorpusMissing(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	flags := &regenFlags{
		corpusFile: filepath.Join(t.TempDir(), "nope.yaml"),
		resultsDir: t.TempDir(),
	}

	err := runRegenWithOutput(context.Background(), &buf, flags, OutputText)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCorpusNotFound)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestRunRegenWithOutput_ResultsLocked(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	fx := newRegenFixture(t)

	held, err := flock.Acquire(filepath.Join(fx.resultsDir, constants.CheckpointFileName+".lock"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, held.Release())
	}()

	var buf bytes.Buffer
	flags := &regenFlags{corpusFile: fx.corpusFile, resultsDir: fx.resultsDir}
	err = runRegenWithOutput(context.Background(), &buf, flags, OutputText)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResultsLocked)
	assert.ErrorIs(t, err, errors.ErrAlreadyReported)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Contains(t, buf.String(), "locked by another invocation")
}

func TestRunRegenWithOutput_SecondPassFindsNothingNew(t *testing.T) {
	// Can't use t.Parallel() with t.Setenv()
	t.Setenv("HOME", t.TempDir())

	fx := newRegenFixture(t)
	flags := &regenFlags{corpusFile: fx.corpusFile, resultsDir: fx.resultsDir}

	var first bytes.Buffer
	require.NoError(t, runRegenWithOutput(context.Background(), &first, flags, OutputJSON))

	// The recovered unit now has a summary; only the corrupt one is
	// still a candidate, and it fails again without a duplicate append.
	var second bytes.Buffer
	require.NoError(t, runRegenWithOutput(context.Background(), &second, flags, OutputJSON))

	var report regenReport
	require.NoError(t, json.Unmarshal(second.Bytes(), &report))
	assert.Equal(t, 1, report.Candidates)
	assert.Empty(t, report.Recovered)
	assert.Equal(t, []string{"core/beta/run-1"}, report.Failed)

	store, err := checkpoint.NewFileStore(filepath.Join(fx.resultsDir, constants.CheckpointFileName))
	require.NoError(t, err)
	cp, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, cp.Results, 1)
}
