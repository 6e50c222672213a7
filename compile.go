// Package bfoptc is the core of an optimizing Brainfuck compiler: parsing,
// the four AST-to-LIR lowering strategies, and the backends that render
// LIR to C, native assembly, or LLVM IR. It exposes one library entry
// point, Compile, for a front-end (CLI, test harness, or other embedder)
// to drive; argument parsing and file I/O live outside this module.
package bfoptc

import (
	"context"
	"fmt"
	"time"

	"bfoptc/internal/ast"
	"bfoptc/internal/bferr"
	"bfoptc/internal/bflog"
	"bfoptc/internal/buildinfo"
	"bfoptc/internal/compileopts"
	"bfoptc/internal/lir"
	"bfoptc/internal/optimizer"
	"bfoptc/internal/parser"
)

// Compile runs the whole pipeline: parse source into an AST, then lower it
// through the optimizer named by opts (or Simple, when opts.Level is 0,
// regardless of which name opts.Optimizer carries). It returns both the
// finished LIR and the parsed AST, so a --dump-ast-style caller never has
// to re-parse. A *bferr.ParseError is returned unwrapped on a malformed
// source so callers can type-assert it for caret-annotated reporting.
func Compile(ctx context.Context, source []byte, opts compileopts.Options) (prog *lir.Program, tree *ast.Program, err error) {
	defer bferr.RecoverInvariant(&err)

	if verr := opts.Validate(); verr != nil {
		return nil, nil, verr
	}

	info := buildinfo.New(time.Now())
	log := bflog.Default().With("build_id", info.BuildID)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	parsed, perr := parser.Parse(source)
	if perr != nil {
		log.Warn("parse failed: %v", perr)
		return nil, nil, perr
	}
	log.Debug("parsed %d top-level nodes", len(parsed))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	name := opts.EffectiveOptimizer()
	opt, ok := optimizer.Default().Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("bfoptc: unknown optimizer %q", name)
	}
	log.Debug("lowering with optimizer=%s level=%d", name, opts.Level)

	lowered, oerr := opt.Optimize(parsed, opts.Level)
	if oerr != nil {
		return nil, nil, oerr
	}
	log.Debug("lowered to %d LIR instructions", len(lowered.Instrs))

	return lowered, &parsed, nil
}
