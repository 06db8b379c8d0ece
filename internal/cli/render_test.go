package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

const testConfig = `
serializer:
  indent: 2
  workers: 2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute 以临时配置文件运行根命令，返回 stdout 内容。
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "graphdoc.yaml", testConfig)

	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderYAML(t *testing.T) {
	dir := t.TempDir()
	jsonFile := writeFile(t, dir, "a.json", `{"name": "a", "n": 1, "tags": ["x", "y"]}`)
	tomlFile := writeFile(t, dir, "b.toml", "title = \"t\"\n\n[owner]\nname = \"o\"\n")

	out, err := execute(t, "render", jsonFile, tomlFile)
	require.NoError(t, err)

	docs := strings.Split(out, "---\n")
	require.Len(t, docs, 2)

	var first map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(docs[0]), &first))
	assert.Equal(t, map[string]any{"n": 1, "name": "a", "tags": []any{"x", "y"}}, first)
	assert.True(t, strings.HasPrefix(docs[0], "n: 1\nname: a\n"))

	var second map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(docs[1]), &second))
	assert.Equal(t, map[string]any{"owner": map[string]any{"name": "o"}, "title": "t"}, second)
}

func TestRenderJSONToOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.yaml", "k: [1, 2]\ns: v\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "render", "--format", "json", "--indent", "0", "-o", outDir, input)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(outDir, "doc.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k": [1, 2], "s": "v"}`, string(data))
}

func TestRenderMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.yaml", "a: 1\n")
	textfile := filepath.Join(dir, "graphdoc.prom")

	_, err := execute(t, "render", "--metrics-textfile", textfile, input)
	require.NoError(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "graphdoc_serialization_total")
	assert.Contains(t, string(data), "graphdoc_serialization_events_total")
}

func TestRenderFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "deep.yaml", "a: {b: {c: {d: 1}}}\n")

	_, err := execute(t, "render", "--max-recursion", "2", input)
	assert.ErrorIs(t, err, merr.ErrRecursionLimitExceeded)

	out, err := execute(t, "render", "--max-recursion", "10", input)
	require.NoError(t, err)
	assert.Contains(t, out, "d: 1")
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.yaml", "a: 1\n")

	_, err := execute(t, "render")
	assert.Error(t, err)

	_, err = execute(t, "render", "--format", "xml", input)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = execute(t, "render", writeFile(t, dir, "doc.txt", "a"))
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = execute(t, "render", filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, merr.ErrIoFailed)

	_, err = execute(t, "render", "--publish", input)
	assert.ErrorIs(t, err, merr.ErrInvalidConfiguration)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	v, err := decodeFile(writeFile(t, dir, "n.json", `{"i": 3, "f": 1.5, "l": [7]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"i": int64(3), "f": 1.5, "l": []any{int64(7)}}, v)

	v, err = decodeFile(writeFile(t, dir, "y.yml", "a: [1, two]\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{1, "two"}}, v)

	v, err = decodeFile(writeFile(t, dir, "t.toml", "n = 5\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(5)}, v)

	_, err = decodeFile(writeFile(t, dir, "bad.json", `{"a":`))
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	assert.Equal(t, merr.InputError, merr.GetErrorType(err))
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "doc", documentName("/tmp/x/doc.yaml"))
	assert.Equal(t, "archive.tar", documentName("archive.tar.gz"))
}
