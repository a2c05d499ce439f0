package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/pkg/errors"
)

const testConfig = `
server:
  mode: test
log:
  level: error
  format: json
metrics:
  enabled: false
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "floratraits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

// execute runs the root command against a throwaway config file.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", writeTestConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "floratraits", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"extract", "serve", "worker", "enqueue", "migrate", "passes", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_PersistentFlags(t *testing.T) {
	pf := NewRootCommand().PersistentFlags()

	for _, name := range []string{"config", "log-level", "output", "verbose"} {
		assert.NotNil(t, pf.Lookup(name), name)
	}
	assert.Equal(t, "c", pf.Lookup("config").Shorthand)
	assert.Equal(t, "json", pf.Lookup("output").DefValue)
	assert.Equal(t, "v", pf.Lookup("verbose").Shorthand)
}

func TestRoot_UnknownOutputFormat(t *testing.T) {
	_, _, err := execute(t, "", "-o", "yaml", "version")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestRoot_MissingConfigFile(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "version"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestGetCLIContext_WithoutPreRun(t *testing.T) {
	cmd := NewVersionCmd()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestVersionCmd_JSON(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestVersionCmd_Text(t *testing.T) {
	out, _, err := execute(t, "", "-o", "text", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "floratraits dev"))
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"A", "BB"}, [][]string{{"xyz", "1"}})
	assert.Equal(t, "A    BB\n---  --\nxyz  1\n", got)
}

func TestFormatTable_MultiByteCells(t *testing.T) {
	got := FormatTable([]string{"V", "X"}, [][]string{{"3–12", "a"}, {"1", "b"}})
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "3–12  a", lines[2])
	assert.Equal(t, "1     b", lines[3])
}

func TestFormatTable_NoHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"x"}}))
}
