// Package compileopts defines the parameter bundle a front-end (a CLI, a
// test harness, or any other embedder) hands to Compile. It is the
// in-process equivalent of the CLI surface described by the overall system:
// a plain struct, validated in one place, with no file-based config loader
// of its own.
package compileopts

import "fmt"

// CellWidth is the configured tape cell width in bits.
type CellWidth int

const (
	Cell8  CellWidth = 8
	Cell16 CellWidth = 16
	Cell32 CellWidth = 32
	Cell64 CellWidth = 64
)

func (w CellWidth) valid() bool {
	switch w {
	case Cell8, Cell16, Cell32, Cell64:
		return true
	}
	return false
}

// Options bundles every parameter the core pipeline needs. Fields that only
// matter to the external CLI/linker/ELF-writer collaborators (OutputPath,
// MinimalELF, DebugInfo) are still carried here so a front-end can populate
// one struct and pass it straight through, even though the core itself
// never branches on them.
type Options struct {
	// EmitAssembly corresponds to -S: select the native backend and skip
	// the link step (linking itself is external to this module).
	EmitAssembly bool
	// DumpAST corresponds to --dump-ast.
	DumpAST bool
	// DumpIR corresponds to --dump-ir.
	DumpIR bool
	// DumpLIR corresponds to --dump-lir.
	DumpLIR bool
	// DebugInfo corresponds to -g. Debugging symbols are a Non-goal of the
	// core; this is threaded through only so a future backend can honor it
	// without changing Options' shape.
	DebugInfo bool
	// OutputPath corresponds to -o PATH. Meaningless to the core, which
	// only ever writes to the io.Writer it is given.
	OutputPath string
	// TapeSize is the tape element count.
	TapeSize int
	// MinimalELF corresponds to --minimal-elf; selects the external
	// ELF-writer collaborator instead of invoking ld. Not exercised here.
	MinimalELF bool
	// Optimizer selects "simple", "simple_add", "old", or "new".
	Optimizer string
	// Level is the optimization level; 0 always selects Simple.
	Level int
	// CellWidth is the tape cell width.
	CellWidth CellWidth
}

// Default returns the documented defaults: an 8192-cell, 8-bit tape using
// the "new" optimizer at level 2.
func Default() Options {
	return Options{
		TapeSize:  8192,
		Optimizer: "new",
		Level:     2,
		CellWidth: Cell8,
	}
}

// Validate checks the bundle for internally-consistent values before the
// pipeline uses it, the way this codebase validates other config structs in
// one place rather than scattering checks through the pipeline.
func (o Options) Validate() error {
	if o.TapeSize <= 0 {
		return fmt.Errorf("compileopts: tape size must be positive, got %d", o.TapeSize)
	}
	if !o.CellWidth.valid() {
		return fmt.Errorf("compileopts: unsupported cell width %d", o.CellWidth)
	}
	switch o.Optimizer {
	case "simple", "simple_add", "old", "new":
	default:
		return fmt.Errorf("compileopts: unknown optimizer %q", o.Optimizer)
	}
	if o.Level < 0 {
		return fmt.Errorf("compileopts: optimization level must be >= 0, got %d", o.Level)
	}
	return nil
}

// EffectiveOptimizer returns the optimizer name that actually governs
// lowering: level 0 always selects Simple, overriding Optimizer.
func (o Options) EffectiveOptimizer() string {
	if o.Level == 0 {
		return "simple"
	}
	return o.Optimizer
}
