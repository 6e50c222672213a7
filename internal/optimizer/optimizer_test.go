package optimizer_test

import (
	"bytes"
	"testing"

	"bfoptc/internal/ast"
	"bfoptc/internal/digest"
	"bfoptc/internal/lirinterp"
	"bfoptc/internal/optimizer"
	"bfoptc/internal/parser"
)

// programs covers straight-line arithmetic, the clear-cell idiom, the scan
// idiom, the multiplier-copy idiom, nested loops, and input/output
// interleaving: every loop-recognition rule each optimizer implements
// should be exercised by at least one entry.
var programs = []struct {
	name   string
	source string
	input  []byte
}{
	{"hello-constant", "++++++++[>++++++++<-]>+.", nil},
	{"clear-cell", "+++++[-]>+++.", nil},
	{"scan-idiom", "+++[>]+.", nil},
	{"multiplier-copy", "++++[>+++>++<<-]>.>.", nil},
	{"echo-until-zero", ",[.,]", []byte("hi\x00")},
	{"nested-loops", "++[>++[>++<-]<-]>>.", nil},
	{"nested-with-io", "+++[>,.<-]", []byte{1, 2, 3}},
}

var allOptimizers = []struct {
	name string
	opt  optimizer.Optimizer
}{
	{"simple", &optimizer.Simple{}},
	{"simple_add", &optimizer.SimpleAdd{}},
	{"old", &optimizer.Old{}},
	{"new", &optimizer.New{}},
}

// TestOptimizersAgree checks the defining correctness property of this
// package: every optimizer, at level 2, must produce LIR observably
// equivalent to Simple's for the same source (same stdout bytes, same
// count of stdin bytes consumed).
func TestOptimizersAgree(t *testing.T) {
	for _, p := range programs {
		p := p
		t.Run(p.name, func(t *testing.T) {
			prog, err := parser.Parse([]byte(p.source))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			want, err := runWith(&optimizer.Simple{}, prog, p.input)
			if err != nil {
				t.Fatalf("reference (simple) run: %v", err)
			}

			for _, o := range allOptimizers {
				got, err := runWith(o.opt, prog, p.input)
				if err != nil {
					t.Fatalf("%s: %v", o.name, err)
				}
				if !bytes.Equal(got.Output, want.Output) {
					t.Errorf("%s: output = %q, want %q", o.name, got.Output, want.Output)
				}
				if got.ReadCount != want.ReadCount {
					t.Errorf("%s: read count = %d, want %d", o.name, got.ReadCount, want.ReadCount)
				}
			}
		})
	}
}

// TestDumpIRIsDeterministic checks the property that lets DumpIR's output
// stand in for a golden fixture: dumping the same AST twice through the
// same optimizer must render byte-identical text, so New's DAG-based
// recognition must not leak map iteration order or any other
// nondeterminism into its dump.
func TestDumpIRIsDeterministic(t *testing.T) {
	prog, err := parser.Parse([]byte("++++[>+++>++<<-]>.>.+[>+++<-]"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, o := range allOptimizers {
		var first, second bytes.Buffer
		if err := o.opt.DumpIR(prog, 2, &first); err != nil {
			t.Fatalf("%s: DumpIR (first): %v", o.name, err)
		}
		if err := o.opt.DumpIR(prog, 2, &second); err != nil {
			t.Fatalf("%s: DumpIR (second): %v", o.name, err)
		}
		if !digest.Equal(first.String(), second.String()) {
			t.Errorf("%s: DumpIR is nondeterministic across identical runs:\n--- first ---\n%s\n--- second ---\n%s",
				o.name, first.String(), second.String())
		}
	}
}

func runWith(o optimizer.Optimizer, prog ast.Program, input []byte) (lirinterp.Result, error) {
	lowered, err := o.Optimize(prog, 2)
	if err != nil {
		return lirinterp.Result{}, err
	}
	return lirinterp.Run(lowered, 4096, 256, input)
}

// TestDumpIRDoesNotPanic exercises every optimizer's intermediate-form
// dump, which each backend-agnostic --dump-ir front-end path depends on.
func TestDumpIRDoesNotPanic(t *testing.T) {
	prog, err := parser.Parse([]byte("++++[>+++>++<<-]>.>."))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, o := range allOptimizers {
		var buf bytes.Buffer
		if err := o.opt.DumpIR(prog, 2, &buf); err != nil {
			t.Errorf("%s: DumpIR: %v", o.name, err)
		}
		if buf.Len() == 0 {
			t.Errorf("%s: DumpIR produced no output", o.name)
		}
	}
}

// TestLevelZeroIsSimple checks the one invariant every optimizer's
// Optimize must honor regardless of its name: level 0 always behaves like
// Simple.
func TestLevelZeroIsSimple(t *testing.T) {
	prog, err := parser.Parse([]byte("++++[>+++>++<<-]>.>."))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want, err := runWith(&optimizer.Simple{}, prog, nil)
	if err != nil {
		t.Fatalf("reference run: %v", err)
	}
	for _, o := range allOptimizers {
		lowered, err := o.opt.Optimize(prog, 0)
		if err != nil {
			t.Fatalf("%s level 0: %v", o.name, err)
		}
		got, err := lirinterp.Run(lowered, 4096, 256, nil)
		if err != nil {
			t.Fatalf("%s level 0 run: %v", o.name, err)
		}
		if !bytes.Equal(got.Output, want.Output) {
			t.Errorf("%s level 0: output = %q, want %q", o.name, got.Output, want.Output)
		}
	}
}
