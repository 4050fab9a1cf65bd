package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

func at(line int) program.Location {
	return program.Location{File: "main.c", Function: "main", Line: line}
}

func TestCallSites(t *testing.T) {
	t.Parallel()
	sig := program.Func(program.Void())
	fpType := program.PointerTo(sig)
	fp := program.Sym("main::1::fp", fpType)
	guard := program.Eq(program.Sym("main::1::x", program.Int()), program.Const("0", program.Int()))

	m := program.NewModel()
	require.NoError(t, m.AddFunction("f", sig, program.New(program.NewEndFunction(at(1)))))
	require.NoError(t, m.AddFunction("main", program.Func(program.Int()), program.New(
		program.NewCondGoto(guard, 2, at(2)),
		program.NewSkip(at(3)),
		program.NewCall(nil, program.Deref(fp), nil, at(4)),
		program.NewCall(nil, program.Deref(fp), nil, at(5)),
		program.NewCall(nil, program.Sym("f", sig), nil, at(6)),
		program.NewEndFunction(at(7)),
	)))

	var sink tt.Collector
	require.NoError(t, CallSites(m, &sink))
	assert.True(t, m.CallSitesLabelled)

	issues := sink.Filter(tt.RuleLabelledCallSite)
	require.Len(t, issues, 2)
	assert.Equal(t, "labelled call through `main::1::fp' as main.function_pointer_call.1", issues[0].Message)
	assert.Equal(t, tt.CategoryFunctionPointer, issues[1].Category)
	assert.Equal(t, 5, issues[1].Location.Line)

	main := m.Functions["main"]
	require.Equal(t, 8, main.Len())
	require.NoError(t, main.Validate())

	// the branch to the first call now reaches its label assignment
	assert.Equal(t, []int{2}, main.At(0).Targets)

	for k, name := range []string{"main.function_pointer_call.1", "main.function_pointer_call.2"} {
		assign := main.At(2 + 2*k)
		call := main.At(3 + 2*k)

		assert.Equal(t, program.Assign, assign.Kind)
		assert.Equal(t, name, assign.LHS.Name)
		assert.Equal(t, "main::1::fp", assign.RHS.Name)

		require.True(t, call.CallsThroughPointer())
		assert.Equal(t, name, call.Function.Pointer().Name)

		sym, ok := m.Symbols.Lookup(name)
		require.True(t, ok)
		assert.True(t, sym.Type.IsFunctionPointer())
		assert.True(t, sym.IsLValue)
	}

	// direct calls are left alone
	assert.Equal(t, "f", main.At(6).Function.Name)

	assert.ErrorIs(t, CallSites(m, nil), ErrAlreadyLabelled)
}

func TestCallSitesUnknownPointerType(t *testing.T) {
	t.Parallel()
	m := program.NewModel()
	ptr := program.Expr{Op: program.OpSymbol, Name: "mystery"}
	callee := program.Expr{Op: program.OpDeref, Operands: []program.Expr{ptr}}
	require.NoError(t, m.AddFunction("main", program.Func(program.Int()), program.New(
		program.NewCall(nil, callee, nil, at(1)),
		program.NewEndFunction(at(2)),
	)))

	err := CallSites(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
	assert.False(t, m.CallSitesLabelled)
}

func TestCallSitesFailureLeavesModelUntouched(t *testing.T) {
	t.Parallel()
	fpType := program.PointerTo(program.Func(program.Void()))
	mystery := program.Expr{Op: program.OpSymbol, Name: "mystery"}

	m := program.NewModel()
	require.NoError(t, m.AddFunction("main", program.Func(program.Int()), program.New(
		program.NewCall(nil, program.Deref(program.Sym("fp", fpType)), nil, at(1)),
		program.NewCall(nil, program.Expr{Op: program.OpDeref, Operands: []program.Expr{mystery}}, nil, at(2)),
		program.NewEndFunction(at(3)),
	)))
	before := m.Functions["main"].Clone()
	symbols := m.Symbols.Names()

	err := CallSites(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")

	assert.False(t, m.CallSitesLabelled)
	assert.Equal(t, before, m.Functions["main"])
	assert.Equal(t, symbols, m.Symbols.Names())
	_, ok := m.Symbols.Lookup(SiteName("main", 1))
	assert.False(t, ok)

	// once the pointer is declared the same model labels cleanly
	require.NoError(t, m.Symbols.Insert(&program.Symbol{Name: "mystery", BaseName: "mystery", Type: fpType}))
	require.NoError(t, CallSites(m, nil))
	assert.True(t, m.CallSitesLabelled)
	assert.Equal(t, 5, m.Functions["main"].Len())
	assert.Equal(t, SiteName("main", 2), m.Functions["main"].At(3).Function.Pointer().Name)
}

func TestCallSitesNameTaken(t *testing.T) {
	t.Parallel()
	fpType := program.PointerTo(program.Func(program.Void()))

	m := program.NewModel()
	require.NoError(t, m.AddFunction("main", program.Func(program.Int()), program.New(
		program.NewCall(nil, program.Deref(program.Sym("fp", fpType)), nil, at(1)),
		program.NewEndFunction(at(2)),
	)))
	require.NoError(t, m.Symbols.Insert(&program.Symbol{Name: SiteName("main", 1), Type: program.Int()}))

	err := CallSites(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, 2, m.Functions["main"].Len())
	assert.False(t, m.CallSitesLabelled)
}

func TestSiteName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "main.function_pointer_call.3", SiteName("main", 3))
}
