package cfg

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gnolang/gotoinstr/internal/cover"
	"github.com/gnolang/gotoinstr/internal/program"
)

// Block is one node of the graph.
type Block struct {
	// Number is the block number, or -1 for ENTRY and -2 for EXIT.
	Number int
	// First and Last are the first and last instruction indices.
	First, Last int
}

const (
	entryNumber = -1
	exitNumber  = -2
)

// CFG is the block-level control flow graph of one program.
type CFG struct {
	Entry *Block
	Exit  *Block

	program *program.Program
	blocks  []*Block
	succs   map[*Block][]*Block
	preds   map[*Block][]*Block
}

// FromProgram builds the graph of p using the given partition.
func FromProgram(p *program.Program, part cover.Partitioner) *CFG {
	g := &CFG{
		Entry:   &Block{Number: entryNumber, First: -1, Last: -1},
		Exit:    &Block{Number: exitNumber, First: -1, Last: -1},
		program: p,
		succs:   make(map[*Block][]*Block),
		preds:   make(map[*Block][]*Block),
	}

	g.blocks = make([]*Block, part.Len())
	for i := range p.Instructions {
		n := part.BlockOf(i)
		if n < 0 {
			continue
		}
		if g.blocks[n] == nil {
			g.blocks[n] = &Block{Number: n, First: i, Last: i}
		} else {
			g.blocks[n].Last = i
		}
	}

	if p.Len() > 0 {
		if n := part.BlockOf(0); n >= 0 {
			g.addEdge(g.Entry, g.blocks[n])
		}
	} else {
		g.addEdge(g.Entry, g.Exit)
	}

	for i := range p.Instructions {
		from := g.blocks[part.BlockOf(i)]
		succs := p.Successors(i)
		if len(succs) == 0 {
			switch p.At(i).Kind {
			case program.EndFunction, program.Throw:
				g.addEdge(from, g.Exit)
			}
			continue
		}
		for _, s := range succs {
			to := g.blocks[part.BlockOf(s)]
			// edges inside a straight-line block are not part of the graph
			if to == from && s == i+1 {
				continue
			}
			g.addEdge(from, to)
		}
	}
	return g
}

func (g *CFG) addEdge(from, to *Block) {
	for _, s := range g.succs[from] {
		if s == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// Blocks returns all nodes: ENTRY, the blocks in block order, then EXIT.
func (g *CFG) Blocks() []*Block {
	out := make([]*Block, 0, len(g.blocks)+2)
	out = append(out, g.Entry)
	for _, b := range g.blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return append(out, g.Exit)
}

func (g *CFG) Preds(b *Block) []*Block { return g.preds[b] }
func (g *CFG) Succs(b *Block) []*Block { return g.succs[b] }

func (g *CFG) label(b *Block) string {
	switch b.Number {
	case entryNumber:
		return "ENTRY"
	case exitNumber:
		return "EXIT"
	}
	first := g.program.At(b.First)
	label := fmt.Sprintf("block %d - %s", b.Number, strings.ToLower(first.Kind.String()))
	if first.Location.Line > 0 {
		label += fmt.Sprintf(" - line %d", first.Location.Line)
	}
	return label
}

// PrintDot writes the graph in GraphViz dot format.
func (g *CFG) PrintDot(w io.Writer) {
	fmt.Fprintf(w, "digraph mgraph {\n\tmode=\"heir\";\n\tsplines=\"ortho\";\n\n")

	nodes := g.Blocks()
	for _, from := range nodes {
		succs := append([]*Block(nil), g.succs[from]...)
		sort.SliceStable(succs, func(i, j int) bool {
			return order(succs[i]) < order(succs[j])
		})
		for _, to := range succs {
			fmt.Fprintf(w, "\t%q -> %q\n", g.label(from), g.label(to))
		}
	}
	fmt.Fprintf(w, "}\n")
}

// order sorts EXIT after every block.
func order(b *Block) int {
	if b.Number == exitNumber {
		return int(^uint(0) >> 1)
	}
	return b.Number
}

// RenderToGraphVizFile writes dot source to output. Outputs with a .dot or
// .gv extension are written as is; other extensions are rendered with the
// GraphViz dot tool, which must be on PATH.
func RenderToGraphVizFile(dot []byte, output string) error {
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	switch ext {
	case "", "dot", "gv":
		return os.WriteFile(output, dot, 0o644)
	}

	cmd := exec.Command("dot", "-T"+ext, "-o", output)
	cmd.Stdin = strings.NewReader(string(dot))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to render graph with dot: %w: %s", err, out)
	}
	return nil
}
