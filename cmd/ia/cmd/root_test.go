package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhagnzhenfei/industry-assistant/internal/config"
	"github.com/zhagnzhenfei/industry-assistant/pkg/version"
)

// chdirTemp moves the test into a fresh directory so config discovery
// and generated files stay isolated.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })
	return tmpDir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	// File logging is not under test here.
	cmd.PersistentPreRunE = nil
	cmd.PersistentPostRun = nil
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := runCmd(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "tokenize")
	assert.Contains(t, out, "tags")
	assert.Contains(t, out, "logs")
}

func TestVersionCmd_Text(t *testing.T) {
	out, err := runCmd(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "commit")
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := runCmd(t, "version", "--json")

	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestTokenizeCmd_Chinese(t *testing.T) {
	out, err := runCmd(t, "tokenize", "这周日你有空吗")

	require.NoError(t, err)
	assert.Contains(t, out, "周日")
	assert.Contains(t, out, "有空")
}

func TestTokenizeCmd_WeightsJSON(t *testing.T) {
	out, err := runCmd(t, "tokenize", "--weights", "--json", "数据分析")

	require.NoError(t, err)
	var infos []struct {
		Term   string  `json:"term"`
		Weight float64 `json:"weight"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.NotEmpty(t, infos)

	var sum float64
	for _, info := range infos {
		sum += info.Weight
	}
	assert.InDelta(t, 1.0, sum, 0.01, "weights should be normalized")
}

func TestConfigInitCmd(t *testing.T) {
	tmpDir := chdirTemp(t)

	out, err := runCmd(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.ProjectConfigName)
	assert.FileExists(t, filepath.Join(tmpDir, config.ProjectConfigName))

	// A second init without --force must refuse to overwrite.
	_, err = runCmd(t, "config", "init")
	require.Error(t, err)

	_, err = runCmd(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigShowCmd(t *testing.T) {
	chdirTemp(t)

	out, err := runCmd(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "lexical_weight")
	assert.Contains(t, out, "provider: static")
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	lines := []string{
		`{"id":"c1","doc_id":"d1","doc_name":"report.md","kb_id":"kb1","title":"数据分析报告","content":"数据分析的结果","tags":["数据"]}`,
		`{"id":"c2","doc_id":"d2","doc_name":"plan.md","kb_id":"kb1","title":"项目计划","content":"项目计划的安排","tags":["项目"]}`,
	}
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	data := lines[0] + "\n" + lines[1] + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestSearchCmd_EndToEnd(t *testing.T) {
	chdirTemp(t)
	corpus := writeCorpus(t)

	out, err := runCmd(t, "search", "--chunks", corpus, "--threshold", "0", "--json", "数据分析")

	require.NoError(t, err)
	var res struct {
		Total  int64
		Chunks []struct {
			ID         string
			DocName    string
			Similarity float64
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotZero(t, res.Total)
	require.NotEmpty(t, res.Chunks)
	assert.Equal(t, "c1", res.Chunks[0].ID, "the analysis chunk should rank first")
}

func TestSearchCmd_TextOutput(t *testing.T) {
	chdirTemp(t)
	corpus := writeCorpus(t)

	out, err := runCmd(t, "search", "--chunks", corpus, "--threshold", "0", "数据分析")

	require.NoError(t, err)
	assert.Contains(t, out, "total:")
	assert.Contains(t, out, "report.md")
}

func TestTagsCmd_Portions(t *testing.T) {
	chdirTemp(t)
	corpus := writeCorpus(t)

	out, err := runCmd(t, "tags", "--chunks", corpus)

	require.NoError(t, err)
	assert.Contains(t, out, "数据")
	assert.Contains(t, out, "项目")
}

func TestTagsCmd_RequiresChunks(t *testing.T) {
	chdirTemp(t)

	_, err := runCmd(t, "tags")

	require.Error(t, err)
}
