package parser_test

import (
	"testing"

	"bfoptc/internal/ast"
	"bfoptc/internal/bferr"
	"bfoptc/internal/parser"
)

func mustParse(t *testing.T, source string) ast.Program {
	t.Helper()
	prog, err := parser.Parse([]byte(source))
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return prog
}

func TestParseUnparseRoundTrip(t *testing.T) {
	// want is the source after +-/<> fusion; a run that fuses to zero (as
	// ">>><<<" does) is not emitted at all.
	cases := []struct{ src, want string }{
		{"", ""},
		{"+++", "+++"},
		{"---", "---"},
		{">>><<<", ""},
		{",.", ",."},
		{"++[>++<-]>.", "++[>++<-]>."},
		{"+[-]+[-]", "+[-]+[-]"},
		{"[[[+]]]", "[[[+]]]"},
	}
	for _, c := range cases {
		prog := mustParse(t, c.src)
		if got := ast.Unparse(prog); got != c.want {
			t.Errorf("Unparse(Parse(%q)) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestParseFusesRuns(t *testing.T) {
	prog := mustParse(t, "+++>>--<")
	want := ast.Program{
		ast.Add{Delta: 3},
		ast.Shift{Delta: 2},
		ast.Add{Delta: -2},
		ast.Shift{Delta: -1},
	}
	if len(prog) != len(want) {
		t.Fatalf("got %d nodes, want %d: %#v", len(prog), len(want), prog)
	}
	for i := range want {
		if prog[i] != want[i] {
			t.Errorf("node %d = %#v, want %#v", i, prog[i], want[i])
		}
	}
}

func TestParseIgnoresCommentary(t *testing.T) {
	// The '+' inside the prose is a command, not commentary, and fuses with
	// the '+' on the next line across the ignored bytes.
	prog := mustParse(t, "this is a comment + still a comment\n+.")
	want := ast.Program{ast.Add{Delta: 2}, ast.Output{}}
	if len(prog) != len(want) || prog[0] != want[0] || prog[1] != want[1] {
		t.Fatalf("got %#v, want %#v", prog, want)
	}
}

func TestParseNestedLoops(t *testing.T) {
	prog := mustParse(t, "+[>+[<]-]")
	if len(prog) != 2 {
		t.Fatalf("expected add then loop, got %#v", prog)
	}
	outer, ok := prog[1].(ast.Loop)
	if !ok {
		t.Fatalf("expected outer node to be a Loop, got %T", prog[1])
	}
	if len(outer.Body) != 4 {
		t.Fatalf("expected outer loop body of 4 nodes (shift, add, loop, add), got %#v", outer.Body)
	}
	if _, ok := outer.Body[2].(ast.Loop); !ok {
		t.Fatalf("expected nested Loop at body[2], got %T", outer.Body[2])
	}
}

func TestUnclosedLoopLocation(t *testing.T) {
	_, err := parser.Parse([]byte("++[+"))
	pe, ok := err.(*bferr.ParseError)
	if !ok {
		t.Fatalf("expected *bferr.ParseError, got %T: %v", err, err)
	}
	if pe.Kind != bferr.UnclosedLoop {
		t.Errorf("kind = %s, want %s", pe.Kind, bferr.UnclosedLoop)
	}
	if pe.Location.Line != 1 || pe.Location.Column != 3 {
		t.Errorf("location = %d:%d, want 1:3", pe.Location.Line, pe.Location.Column)
	}
}

func TestExtraCloseLoopLocation(t *testing.T) {
	_, err := parser.Parse([]byte("++]"))
	pe, ok := err.(*bferr.ParseError)
	if !ok {
		t.Fatalf("expected *bferr.ParseError, got %T: %v", err, err)
	}
	if pe.Kind != bferr.ExtraCloseLoop {
		t.Errorf("kind = %s, want %s", pe.Kind, bferr.ExtraCloseLoop)
	}
	if pe.Location.Line != 1 || pe.Location.Column != 3 {
		t.Errorf("location = %d:%d, want 1:3", pe.Location.Line, pe.Location.Column)
	}
}

func TestUnclosedLoopAcrossLines(t *testing.T) {
	_, err := parser.Parse([]byte("+\n+\n[+"))
	pe, ok := err.(*bferr.ParseError)
	if !ok {
		t.Fatalf("expected *bferr.ParseError, got %T: %v", err, err)
	}
	if pe.Location.Line != 3 || pe.Location.Column != 1 {
		t.Errorf("location = %d:%d, want 3:1", pe.Location.Line, pe.Location.Column)
	}
}

func TestWideRuneColumnWidth(t *testing.T) {
	// A fullwidth comment rune counts as two display columns, so the '['
	// that follows should be reported at column 3, not column 2.
	_, err := parser.Parse([]byte("Ａ[+"))
	pe, ok := err.(*bferr.ParseError)
	if !ok {
		t.Fatalf("expected *bferr.ParseError, got %T: %v", err, err)
	}
	if pe.Location.Column != 3 {
		t.Errorf("column = %d, want 3", pe.Location.Column)
	}
}
