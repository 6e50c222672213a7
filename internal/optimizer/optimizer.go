// Package optimizer implements the four AST-to-LIR lowering strategies
// (Simple, SimpleAdd, Old, New) behind one shared registry.
package optimizer

import (
	"io"

	"bfoptc/internal/ast"
	"bfoptc/internal/lir"
)

// Optimizer lowers an AST to LIR. The contract is total over well-formed
// AST: it never fails (errors returned here are reserved for internal
// invariant violations surfaced as errors rather than panics).
type Optimizer interface {
	// Optimize lowers prog to LIR. level 0 always behaves like Simple,
	// regardless of which named optimizer this instance is.
	Optimize(prog ast.Program, level int) (*lir.Program, error)
	// DumpIR pretty-prints this optimizer's intermediate form (Token IR for
	// Old, DAG IR for New, or the AST itself for Simple/SimpleAdd) to w.
	DumpIR(prog ast.Program, level int, w io.Writer) error
}
