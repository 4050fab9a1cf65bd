package cover

import "github.com/gnolang/gotoinstr/internal/program"

// NewBytecodeBlocks groups instructions by the bytecode index of their source
// location. The first instruction seen for an index represents its block.
func NewBytecodeBlocks(p *program.Program) *Blocks[string] {
	b := newBlocks(p.Len(), func(i int) string {
		return p.At(i).Location.BytecodeIndex
	})

	for i := range p.Instructions {
		ins := p.At(i)
		k := ins.Location.BytecodeIndex
		n, ok := b.index[k]
		if !ok {
			n = len(b.infos)
			b.index[k] = n
			b.infos = append(b.infos, blockInfo{
				representative: i,
				location:       ins.Location,
			})
		}
		addBlockLines(&b.infos[n], ins)
	}
	return b
}
