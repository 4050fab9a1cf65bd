// # Description
//
// Package cfg builds the block-level Control Flow Graph (CFG) of a goto-program.
//
// ## Control Flow Graph (CFG)
//
// A CFG is a representation, using graph notation, of all paths that might be traversed
// through a program during its execution. In a CFG:
//
//   - Each node in the graph represents a basic block (a straight-line piece of code without any jumps).
//   - The directed edges represent jumps in the control flow.
//
// The nodes are the blocks computed by package cover, so the graph shows exactly the
// blocks that coverage instrumentation will report on. Two synthetic nodes, ENTRY and
// EXIT, mark where the function starts and where control leaves it.
//
// ## Package Functionality
//
//  1. CFG Construction: use `FromProgram` with a program and its partition.
//  2. Traverse the graph with `Blocks`, `Preds` and `Succs`.
//  3. Render it with `PrintDot`, or `RenderToGraphVizFile` when GraphViz is installed.
package cfg
