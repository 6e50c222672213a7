// Package ast defines the Brainfuck abstract syntax tree produced by the
// parser and consumed by every optimizer variant.
package ast

// Node is a single AST construct. Every optimizer walks a Program by type
// switching on Node, mirroring the Accept/Visitor split this codebase uses
// for its other trees, but without the extra indirection: AST shapes are
// closed and small enough that a type switch reads better than a five-method
// visitor interface here.
type Node interface {
	isNode()
}

// Program is an ordered sequence of top-level nodes.
type Program []Node

// Add adjusts the current cell by Delta, modulo the configured cell width.
type Add struct {
	Delta int32
}

func (Add) isNode() {}

// Shift moves the data pointer by Delta cells.
type Shift struct {
	Delta int32
}

func (Shift) isNode() {}

// Input reads one byte into the current cell.
type Input struct{}

func (Input) isNode() {}

// Output writes the current cell.
type Output struct{}

func (Output) isNode() {}

// Loop executes Body while the current cell is non-zero.
type Loop struct {
	Body Program
}

func (Loop) isNode() {}

// Unparse renders a Program back to the canonical command string, following
// the trivial rule used by the parse-unparse soundness property: Add/Shift
// expand to repeated +/- or </> runs, and Loop renders its body recursively
// inside brackets.
func Unparse(prog Program) string {
	var out []byte
	out = unparseInto(out, prog)
	return string(out)
}

func unparseInto(out []byte, prog Program) []byte {
	for _, n := range prog {
		switch v := n.(type) {
		case Add:
			out = repeatRune(out, '+', '-', v.Delta)
		case Shift:
			out = repeatRune(out, '>', '<', v.Delta)
		case Input:
			out = append(out, ',')
		case Output:
			out = append(out, '.')
		case Loop:
			out = append(out, '[')
			out = unparseInto(out, v.Body)
			out = append(out, ']')
		}
	}
	return out
}

func repeatRune(out []byte, pos, neg byte, n int32) []byte {
	c := pos
	if n < 0 {
		c = neg
		n = -n
	}
	for i := int32(0); i < n; i++ {
		out = append(out, c)
	}
	return out
}
