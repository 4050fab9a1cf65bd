package cover

import "github.com/gnolang/gotoinstr/internal/program"

// NewBasicBlocks partitions p in a single forward pass.
//
// A block starts at the entry instruction, at every branch target and after
// every goto, function call or throw. A block entered only through an
// unconditional forward goto continues the block of that goto instead.
func NewBasicBlocks(p *program.Program) *Blocks[int] {
	b := newBlocks(p.Len(), func(i int) int { return i })

	incoming := p.IncomingEdges()
	targets := p.BranchTargets()
	firstValid := make([]program.Location, 0, p.Len())

	nextIsTarget := true
	current := 0
	for i := range p.Instructions {
		ins := p.At(i)

		if nextIsTarget || targets[i] {
			if n, ok := continuationOf(p, incoming[i], b.index); ok {
				current = n
			} else {
				b.infos = append(b.infos, blockInfo{representative: -1})
				firstValid = append(firstValid, program.Location{})
				current = len(b.infos) - 1
			}
		}

		b.index[i] = current
		info := &b.infos[current]
		addBlockLines(info, ins)

		if info.representative < 0 && !ins.Kind.IsMarker() {
			info.representative = i
		}
		if firstValid[current].IsNil() && ins.Location.Valid() {
			firstValid[current] = ins.Location
		}

		nextIsTarget = ins.Kind.EndsBlock()
	}

	for n := range b.infos {
		info := &b.infos[n]
		if rep := info.representative; rep >= 0 && p.At(rep).Location.Valid() {
			info.location = p.At(rep).Location
		} else {
			info.location = firstValid[n]
		}
	}
	return b
}

// continuationOf returns the block an instruction joins when its only
// incoming edge is an unconditional forward goto that has already been
// assigned a block.
func continuationOf(p *program.Program, preds []int, index map[int]int) (int, bool) {
	if len(preds) != 1 {
		return 0, false
	}
	pred := preds[0]
	in := p.At(pred)
	if !in.IsGoto() || !in.IsUnconditional() || p.IsBackwardGoto(pred) {
		return 0, false
	}
	n, ok := index[pred]
	return n, ok
}
