package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	logger, cleanup, err := Setup(Config{
		Level:     "debug",
		FilePath:  path,
		MaxSizeMB: 1,
		MaxFiles:  2,
	})
	require.NoError(t, err)

	logger.Info("search complete", "total", 3)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"search complete"`)
	assert.Contains(t, string(data), `"total":3`)
}

func TestSetupLevelFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("visible")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	// Force rotation by writing past one megabyte.
	chunk := []byte(strings.Repeat("x", 64*1024))
	for i := 0; i < 20; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file exists")
}

func TestViewerTailFiltersByLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")
	lines := strings.Join([]string{
		`{"time":"2026-08-26T10:00:00Z","level":"DEBUG","msg":"noise"}`,
		`{"time":"2026-08-26T10:00:01Z","level":"ERROR","msg":"store search failed"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	v := NewViewer(ViewerConfig{Level: "error", NoColor: true}, os.Stdout)
	entries, err := v.Tail(path, 100)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "store search failed", entries[0].Msg)
}

func TestViewerFormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, os.Stdout)
	entry := v.parseLine(`{"time":"2026-08-26T10:00:00Z","level":"INFO","msg":"ready","kb":"kb1"}`)

	out := v.FormatEntry(entry)
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "kb=kb1")
}

func TestViewerPatternFilter(t *testing.T) {
	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile("relax")}, os.Stdout)

	match := v.parseLine(`{"level":"INFO","msg":"relaxed search complete"}`)
	miss := v.parseLine(`{"level":"INFO","msg":"search complete"}`)
	assert.True(t, v.matchesFilter(match))
	assert.False(t, v.matchesFilter(miss))
}
