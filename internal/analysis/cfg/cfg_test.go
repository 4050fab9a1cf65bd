package cfg

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnolang/gotoinstr/internal/cover"
	"github.com/gnolang/gotoinstr/internal/program"
)

func at(line int) program.Location {
	return program.Location{File: "main.c", Function: "main", Line: line}
}

func assign(line int) program.Instruction {
	return program.NewAssign(program.Sym("x", program.Int()), program.Const("1", program.Int()), at(line))
}

// x = 1; if x == 0 goto 4; x = 1; goto 1; end
func loopProgram() *program.Program {
	guard := program.Eq(program.Sym("x", program.Int()), program.Const("0", program.Int()))
	return program.New(
		assign(1),
		program.NewCondGoto(guard, 4, at(2)),
		assign(3),
		program.NewGoto(1, at(4)),
		program.NewEndFunction(at(5)),
	)
}

func TestFromProgram(t *testing.T) {
	p := loopProgram()
	g := FromProgram(p, cover.NewBasicBlocks(p))

	if g.Entry == nil {
		t.Errorf("Expected Entry node, got nil")
	}
	if g.Exit == nil {
		t.Errorf("Expected Exit node, got nil")
	}

	blocks := g.Blocks()
	// ENTRY, {0}, {1}, {2,3}, {4}, EXIT
	if len(blocks) != 6 {
		t.Fatalf("Expected 6 blocks, got %d", len(blocks))
	}

	header := blocks[2]
	if header.First != 1 || header.Last != 1 {
		t.Errorf("Expected loop header to span instruction 1, got %d-%d", header.First, header.Last)
	}
	if preds := g.Preds(header); len(preds) != 2 {
		t.Errorf("Expected 2 predecessors of the loop header, got %d", len(preds))
	}
	if succs := g.Succs(header); len(succs) != 2 {
		t.Errorf("Expected 2 successors of the loop header, got %d", len(succs))
	}

	body := blocks[3]
	if body.First != 2 || body.Last != 3 {
		t.Errorf("Expected loop body to span instructions 2-3, got %d-%d", body.First, body.Last)
	}

	for _, block := range blocks {
		t.Logf("Block: %v, Preds: %v, Succs: %v", block, g.Preds(block), g.Succs(block))
	}
}

func TestFromProgramEmpty(t *testing.T) {
	p := program.New()
	g := FromProgram(p, cover.NewBasicBlocks(p))

	if len(g.Blocks()) != 2 {
		t.Errorf("Expected only ENTRY and EXIT, got %d blocks", len(g.Blocks()))
	}
	if succs := g.Succs(g.Entry); len(succs) != 1 || succs[0] != g.Exit {
		t.Errorf("Expected ENTRY -> EXIT, got %v", succs)
	}
}

func TestPrintDot(t *testing.T) {
	p := loopProgram()
	g := FromProgram(p, cover.NewBasicBlocks(p))

	var buf bytes.Buffer
	g.PrintDot(&buf)

	expected := `
digraph mgraph {
	mode="heir";
	splines="ortho";

	"ENTRY" -> "block 0 - assign - line 1"
	"block 0 - assign - line 1" -> "block 1 - goto - line 2"
	"block 1 - goto - line 2" -> "block 2 - assign - line 3"
	"block 1 - goto - line 2" -> "block 3 - end_function - line 5"
	"block 2 - assign - line 3" -> "block 1 - goto - line 2"
	"block 3 - end_function - line 5" -> "EXIT"
}
`

	if normalizeDotOutput(buf.String()) != normalizeDotOutput(expected) {
		t.Errorf("Expected DOT output:\n%s\nGot:\n%s", expected, buf.String())
	}
}

func TestRenderToGraphVizFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "graph.dot")
	if err := RenderToGraphVizFile([]byte("digraph mgraph {}\n"), out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "digraph mgraph {}\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func normalizeDotOutput(dot string) string {
	lines := strings.Split(dot, "\n")
	var normalized []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, "\n")
}
