package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/instrument"
	"github.com/gnolang/gotoinstr/internal/program"
	"github.com/gnolang/gotoinstr/internal/restrict"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

func init() {
	color.NoColor = true
}

var signature = program.Func(program.Void())

func at(line int) program.Location {
	return program.Location{File: "main.c", Function: "main", Line: line}
}

// writeModel stores a model whose main calls through fp after choosing
// between two handlers.
func writeModel(t *testing.T, dir string) string {
	t.Helper()
	fpType := program.PointerTo(signature)
	fp := program.Sym("main::1::fp", fpType)
	cond := program.Eq(program.Sym("main::1::x", program.Int()), program.Const("0", program.Int()))

	m := program.NewModel()
	for _, name := range []string{"on_read", "on_write"} {
		require.NoError(t, m.AddFunction(name, signature, program.New(program.NewEndFunction(at(1)))))
	}
	require.NoError(t, m.Symbols.Insert(&program.Symbol{Name: "main::1::fp", BaseName: "fp", Type: fpType, IsLValue: true}))
	require.NoError(t, m.AddFunction("main", program.Func(program.Int()), program.New(
		program.NewAssign(fp, program.AddressOf(program.Sym("on_read", signature)), at(2)),
		program.NewCondGoto(cond, 3, at(3)),
		program.NewAssign(fp, program.AddressOf(program.Sym("on_write", signature)), at(4)),
		program.NewCall(nil, program.Deref(fp), nil, at(5)),
		program.NewEndFunction(at(6)),
	)))

	path := filepath.Join(dir, "main.goto.yaml")
	require.NoError(t, program.Save(path, m))
	return path
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "custom.yaml")

	written, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, instrument.DefaultConfig(), config)
}

func TestRunBlocks(t *testing.T) {
	t.Parallel()
	path := writeModel(t, t.TempDir())

	var out bytes.Buffer
	err := runBlocks(context.Background(), &out, instrument.New(instrument.DefaultConfig(), nil), []string{path}, false, "")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "info: basic-block")
	assert.Contains(t, out.String(), "block 0: representative 0")

	config := instrument.DefaultConfig()
	config.Rules = map[string]tt.ConfigRule{tt.RuleBasicBlock: {Severity: tt.SeverityError}}
	out.Reset()
	err = runBlocks(context.Background(), &out, instrument.New(config, nil), []string{path}, false, "")
	assert.ErrorIs(t, err, errIssuesFound)
}

func TestRunBlocksJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeModel(t, dir)
	output := filepath.Join(dir, "issues.json")

	err := runBlocks(context.Background(), &bytes.Buffer{}, instrument.New(instrument.DefaultConfig(), nil), []string{dir}, true, output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var byModel map[string][]tt.Issue
	require.NoError(t, json.Unmarshal(data, &byModel))
	require.Contains(t, byModel, path)
	assert.NotEmpty(t, byModel[path])
}

func TestRunLabel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeModel(t, dir)
	output := filepath.Join(dir, "labelled.goto.json")

	var out bytes.Buffer
	require.NoError(t, runLabel(&out, input, output))
	assert.Equal(t, "labelled 1 call sites: "+output+"\n", out.String())

	model, err := program.Load(output)
	require.NoError(t, err)
	assert.True(t, model.CallSitesLabelled)
	_, ok := model.Symbols.Lookup("main.function_pointer_call.1")
	assert.True(t, ok)

	assert.Error(t, runLabel(&out, output, filepath.Join(dir, "twice.goto.json")))
}

func TestRunRestrict(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeModel(t, dir)
	output := filepath.Join(dir, "restricted.goto.yaml")
	restrictions := filepath.Join(dir, "restrictions.json")

	var out bytes.Buffer
	report, err := runRestrict(&out, zap.NewNop(), input, output,
		restrict.Options{ByName: []string{"fp/on_read,on_write"}}, restrictions)
	require.NoError(t, err)
	require.Len(t, report.Sites, 1)
	assert.Equal(t, "restricted main.function_pointer_call.1 in main to on_read, on_write\n", out.String())

	saved, err := restrict.ReadFile(restrictions)
	require.NoError(t, err)
	targets, _ := saved.Get("main.function_pointer_call.1")
	assert.Equal(t, []string{"on_read", "on_write"}, targets)

	model, err := program.Load(output)
	require.NoError(t, err)
	assert.True(t, model.IsRestricted("main.function_pointer_call.1"))

	// restricting the rewritten model again is refused
	_, err = runRestrict(&out, zap.NewNop(), output, filepath.Join(dir, "again.goto.yaml"),
		restrict.Options{Inline: []string{"main.function_pointer_call.1/on_read"}}, "")
	assert.ErrorIs(t, err, restrict.ErrAlreadyRestricted)

	_, err = runRestrict(&out, zap.NewNop(), input, output, restrict.Options{Inline: []string{"oops"}}, "")
	var formatErr *restrict.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestRunDot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeModel(t, dir)

	var out bytes.Buffer
	require.NoError(t, runDot(&out, input, "main", "basic", ""))
	assert.Contains(t, out.String(), "digraph mgraph {")

	output := filepath.Join(dir, "main.dot")
	out.Reset()
	require.NoError(t, runDot(&out, input, "main", "basic", output))
	assert.FileExists(t, output)

	assert.ErrorContains(t, runDot(&out, input, "nope", "basic", ""), "function not found")
	assert.Error(t, runDot(&out, input, "main", "sliced", ""))
}
