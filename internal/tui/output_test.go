package tui

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gauntleterrors "github.com/mrz1836/gauntlet/internal/errors"
)

// TestOutputInterface_TTYOutput tests TTYOutput implements the Output interface.
func TestOutputInterface_TTYOutput(t *testing.T) {
	var buf bytes.Buffer
	var out Output = NewTTYOutput(&buf)
	assert.NotNil(t, out)
}

// TestOutputInterface_JSONOutput tests JSONOutput implements the Output interface.
func TestOutputInterface_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	var out Output = NewJSONOutput(&buf)
	assert.NotNil(t, out)
}

func TestTTYOutput_Success(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	out.Success("checkpoint written")
	output := buf.String()
	assert.Contains(t, output, "✓")
	assert.Contains(t, output, "checkpoint written")
}

func TestTTYOutput_Error(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	out.Error(gauntleterrors.ErrCorpusNotFound)
	output := buf.String()
	assert.Contains(t, output, "✗")
	assert.Contains(t, output, "not found")
}

func TestTTYOutput_Warning(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	out.Warning("2 units skipped")
	output := buf.String()
	assert.Contains(t, output, "⚠")
	assert.Contains(t, output, "2 units skipped")
}

func TestTTYOutput_Info(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	out.Info("resuming from checkpoint")
	output := buf.String()
	assert.Contains(t, output, "ℹ")
	assert.Contains(t, output, "resuming from checkpoint")
}

func TestTTYOutput_Table(t *testing.T) {
	t.Run("basic table", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewTTYOutput(&buf)
		out.Table([]string{"UNIT", "STATE"}, [][]string{
			{"core/edit/run-1", "completed"},
			{"core/edit/run-2", "missing"},
		})
		output := buf.String()
		assert.Contains(t, output, "UNIT")
		assert.Contains(t, output, "STATE")
		assert.Contains(t, output, "core/edit/run-1")
		assert.Contains(t, output, "completed")
		assert.Contains(t, output, "core/edit/run-2")
		assert.Contains(t, output, "missing")
	})

	t.Run("empty table", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewTTYOutput(&buf)
		out.Table([]string{}, [][]string{})
		assert.Empty(t, buf.String())
	})

	t.Run("table with short row", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewTTYOutput(&buf)
		out.Table([]string{"A", "B", "C"}, [][]string{
			{"1"},
		})
		output := buf.String()
		assert.Contains(t, output, "A")
		assert.Contains(t, output, "B")
		assert.Contains(t, output, "C")
		assert.Contains(t, output, "1")
	})

	t.Run("table with unicode", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewTTYOutput(&buf)
		out.Table([]string{"ICON", "TEXT"}, [][]string{
			{"✓", "pass"},
			{"⚠", "error"},
		})
		output := buf.String()
		assert.Contains(t, output, "✓")
		assert.Contains(t, output, "⚠")
	})
}

func TestTTYOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	err := out.JSON(map[string]string{"status": "pass"})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "pass", decoded["status"])
}

func TestJSONOutput_Success(t *testing.T) {
	var buf bytes.Buffer
	out := NewJSONOutput(&buf)
	out.Success("checkpoint written")

	var msg map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, "success", msg["type"])
	assert.Equal(t, "checkpoint written", msg["message"])
}

func TestJSONOutput_Error(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewJSONOutput(&buf)
		out.Error(gauntleterrors.ErrCorpusNotFound)

		var msg map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
		assert.Equal(t, "error", msg["type"])
		assert.Contains(t, msg["message"], "not found")
		assert.Empty(t, msg["details"])
	})

	t.Run("wrapped error includes details", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewJSONOutput(&buf)
		out.Error(gauntleterrors.Wrap(gauntleterrors.ErrCorpusNotFound, "loading corpus"))

		var msg map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
		assert.Equal(t, "error", msg["type"])
		assert.Contains(t, msg["message"], "loading corpus")
		assert.Contains(t, msg["details"], "not found")
	})
}

func TestJSONOutput_Warning(t *testing.T) {
	var buf bytes.Buffer
	out := NewJSONOutput(&buf)
	out.Warning("2 units skipped")

	var msg map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, "warning", msg["type"])
	assert.Equal(t, "2 units skipped", msg["message"])
}

func TestJSONOutput_Info(t *testing.T) {
	var buf bytes.Buffer
	out := NewJSONOutput(&buf)
	out.Info("resuming from checkpoint")

	var msg map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, "info", msg["type"])
	assert.Equal(t, "resuming from checkpoint", msg["message"])
}

func TestJSONOutput_Table(t *testing.T) {
	t.Run("rows become objects keyed by header", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewJSONOutput(&buf)
		out.Table([]string{"UNIT", "STATE"}, [][]string{
			{"core/edit/run-1", "completed"},
			{"core/edit/run-2"},
		})

		var rows []map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "core/edit/run-1", rows[0]["UNIT"])
		assert.Equal(t, "completed", rows[0]["STATE"])
		assert.Equal(t, "", rows[1]["STATE"], "short rows pad with empty cells")
	})

	t.Run("empty headers encode an empty array", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewJSONOutput(&buf)
		out.Table(nil, nil)

		var rows []map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		assert.Empty(t, rows)
	})
}

func TestJSONOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewJSONOutput(&buf)
	err := out.JSON(map[string]int{"pass": 12})
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 12, decoded["pass"])
}

func TestNewOutput(t *testing.T) {
	t.Run("json format returns JSONOutput", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewOutput(&buf, "json")
		_, ok := out.(*JSONOutput)
		assert.True(t, ok)
	})

	t.Run("text format returns TTYOutput", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewOutput(&buf, "text")
		_, ok := out.(*TTYOutput)
		assert.True(t, ok)
	})

	t.Run("empty format returns TTYOutput", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewOutput(&buf, "")
		_, ok := out.(*TTYOutput)
		assert.True(t, ok)
	})
}
