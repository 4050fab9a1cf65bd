// Package cover partitions goto-programs into basic blocks for coverage
// instrumentation.
//
// Two partitioning strategies share one result type, Blocks, which is generic
// over the identity used to look up an instruction's block:
//
//   - NewBasicBlocks keys blocks by instruction index and follows control flow.
//   - NewBytecodeBlocks keys blocks by the bytecode index recorded in each
//     instruction's source location, one block per distinct index.
//
// Both are recomputed from scratch for every request. Block numbers are only
// meaningful for the program they were computed from and become stale as soon
// as the program is rewritten.
package cover

import (
	"fmt"

	"github.com/gnolang/gotoinstr/internal/program"
	"github.com/gnolang/gotoinstr/internal/sourcelines"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

// Partitioner is the query interface shared by all partitioning strategies.
type Partitioner interface {
	// BlockOf returns the block number of instruction i, or -1 if i is not
	// part of the partitioned program.
	BlockOf(i int) int
	// InstructionOf returns the representative instruction of a block.
	InstructionOf(block int) (int, bool)
	SourceLocationOf(block int) program.Location
	SourceLinesOf(block int) *sourcelines.Lines
	// Len returns the number of blocks.
	Len() int
	// Output reports every block, in block order, to sink.
	Output(function string, sink tt.Sink)
	// ReportAnomalies warns about blocks that cannot be instrumented.
	ReportAnomalies(function string, p *program.Program, sink tt.Sink)
}

type blockInfo struct {
	// representative is the instruction to instrument for the block, -1 if
	// the block holds no real instruction.
	representative int
	location       program.Location
	lines          sourcelines.Lines
}

// Blocks is a partition of one program into numbered blocks. K is the
// identity an instruction is looked up by.
type Blocks[K comparable] struct {
	size  int
	key   func(i int) K
	index map[K]int
	infos []blockInfo
}

func newBlocks[K comparable](size int, key func(int) K) *Blocks[K] {
	return &Blocks[K]{
		size:  size,
		key:   key,
		index: make(map[K]int, size),
	}
}

func (b *Blocks[K]) BlockOf(i int) int {
	if i < 0 || i >= b.size {
		return -1
	}
	n, ok := b.index[b.key(i)]
	if !ok {
		return -1
	}
	return n
}

// BlockOfKey returns the block number stored for key k.
func (b *Blocks[K]) BlockOfKey(k K) (int, bool) {
	n, ok := b.index[k]
	return n, ok
}

func (b *Blocks[K]) InstructionOf(block int) (int, bool) {
	if block < 0 || block >= len(b.infos) {
		return 0, false
	}
	rep := b.infos[block].representative
	return rep, rep >= 0
}

func (b *Blocks[K]) SourceLocationOf(block int) program.Location {
	if block < 0 || block >= len(b.infos) {
		return program.Location{}
	}
	return b.infos[block].location
}

func (b *Blocks[K]) SourceLinesOf(block int) *sourcelines.Lines {
	if block < 0 || block >= len(b.infos) {
		return &sourcelines.Lines{}
	}
	return &b.infos[block].lines
}

func (b *Blocks[K]) Len() int { return len(b.infos) }

func (b *Blocks[K]) Output(function string, sink tt.Sink) {
	for n := range b.infos {
		info := &b.infos[n]
		rep := "none"
		if info.representative >= 0 {
			rep = fmt.Sprint(info.representative)
		}
		sink.Report(tt.Issue{
			Rule:     tt.RuleBasicBlock,
			Severity: tt.SeverityInfo,
			Function: function,
			Block:    n,
			Location: info.location,
			Message:  fmt.Sprintf("block %d: representative %s, lines %s", n, rep, info.lines.String()),
		})
	}
}

func (b *Blocks[K]) ReportAnomalies(function string, p *program.Program, sink tt.Sink) {
	if p.Len() == 0 {
		sink.Report(tt.Issue{
			Rule:     tt.RuleBlockAnomaly,
			Severity: tt.SeverityWarning,
			Function: function,
			Block:    -1,
			Message:  fmt.Sprintf("function %s has no blocks", function),
		})
		return
	}

	seen := make(map[int]bool, len(b.infos))
	for i := range p.Instructions {
		n := b.BlockOf(i)
		if n < 0 {
			continue
		}
		info := &b.infos[n]
		first := !seen[n]
		seen[n] = true

		ins := p.At(i)
		switch {
		case first && info.representative < 0:
			sink.Report(tt.Issue{
				Rule:     tt.RuleBlockAnomaly,
				Severity: tt.SeverityWarning,
				Function: function,
				Block:    n,
				Location: ins.Location,
				Message:  fmt.Sprintf("ignoring block %d location %d: no representative instruction", n, i),
			})
		case info.representative == i && info.lines.Empty():
			sink.Report(tt.Issue{
				Rule:     tt.RuleBlockAnomaly,
				Severity: tt.SeverityWarning,
				Function: function,
				Block:    n,
				Location: ins.Location,
				Message:  fmt.Sprintf("ignoring block %d location %d: missing source location", n, i),
			})
		}
	}
}

// addBlockLines adds the lines of ins and of every expression inside it that
// carries its own location, such as the arguments of a call spread over
// several lines.
func addBlockLines(info *blockInfo, ins *program.Instruction) {
	info.lines.Insert(ins.Location)

	var visit func(e *program.Expr)
	visit = func(e *program.Expr) {
		if e == nil {
			return
		}
		if e.Location.Function != "" {
			info.lines.Insert(e.Location)
		}
		for k := range e.Operands {
			visit(&e.Operands[k])
		}
	}
	visit(ins.Guard)
	visit(ins.LHS)
	visit(ins.RHS)
	visit(ins.Function)
	for k := range ins.Args {
		visit(&ins.Args[k])
	}
}

// ForVariant builds the partition named by variant ("basic" or "bytecode").
func ForVariant(variant string, p *program.Program) (Partitioner, error) {
	if err := CheckVariant(variant); err != nil {
		return nil, err
	}
	if variant == VariantBytecode {
		return NewBytecodeBlocks(p), nil
	}
	return NewBasicBlocks(p), nil
}

// CheckVariant fails unless variant names a partitioning strategy.
func CheckVariant(variant string) error {
	switch variant {
	case "", VariantBasic, VariantBytecode:
		return nil
	}
	return fmt.Errorf("unknown block variant %q", variant)
}

const (
	VariantBasic    = "basic"
	VariantBytecode = "bytecode"
)
