package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/gotoinstr/internal/restrict"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigPath)
	content := `name: demo
restrictions:
  - main.function_pointer_call.1/f,g
restrictions_by_name:
  - handler/on_read
restriction_files:
  - extra.json
rules:
  basic-block:
    severity: off
  block-anomaly:
    severity: error
blocks:
  variant: bytecode
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", config.Name)
	assert.Equal(t, []string{"main.function_pointer_call.1/f,g"}, config.Inline)
	assert.Equal(t, []string{"handler/on_read"}, config.ByName)
	assert.Equal(t, []string{"extra.json"}, config.Files)
	assert.Equal(t, tt.SeverityOff, config.Rules[tt.RuleBasicBlock].Severity)
	assert.Equal(t, tt.SeverityError, config.Rules[tt.RuleBlockAnomaly].Severity)
	assert.Equal(t, "bytecode", config.Blocks.Variant)

	opts := config.RestrictOptions(restrict.Options{Inline: []string{"x/y"}, Files: []string{"cli.json"}})
	assert.Equal(t, []string{"main.function_pointer_call.1/f,g", "x/y"}, opts.Inline)
	assert.Equal(t, []string{"handler/on_read"}, opts.ByName)
	assert.Equal(t, []string{"extra.json", "cli.json"}, opts.Files)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("blocks:\n  variant: sliced\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "unknown block variant")

	severity := filepath.Join(dir, "severity.yaml")
	require.NoError(t, os.WriteFile(severity, []byte("rules:\n  basic-block:\n    severity: loud\n"), 0o644))
	_, err = LoadConfig(severity)
	assert.ErrorContains(t, err, "unknown severity")
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigPath)
	require.NoError(t, WriteConfig(path, DefaultConfig()))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}
