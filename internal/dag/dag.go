// Package dag implements the per-basic-block expression DAG used by the New
// optimizer: a directed acyclic graph over Tape/Const/Add/Multiply values,
// with structural sharing (common-subexpression elimination on
// construction) and a terminal map describing what gets written back to the
// tape when the block commits.
package dag

import "bfoptc/internal/ordmap"

// Kind identifies a Node's shape.
type Kind int

const (
	KindTape Kind = iota
	KindConst
	KindAdd
	KindMul
)

// Node is one DAG value. It is a plain comparable struct so construction can
// use it directly as a map key for CSE: adding a value already present
// returns the existing index instead of growing the graph.
type Node struct {
	Kind   Kind
	Offset int32 // valid when Kind == KindTape
	Val    int32 // valid when Kind == KindConst
	A, B   int   // child node indices, valid when Kind == KindAdd/KindMul
}

// DAG is a single basic block's expression graph.
type DAG struct {
	// Nodes holds every value in construction order. Because CSE never
	// rewrites an existing entry, and a node only ever references nodes
	// built before it, iterating 0..len(Nodes) is always a valid
	// topological order: children precede parents.
	Nodes []Node

	// Terminals maps a tape offset to the node that will be written back to
	// it when the block commits. Order-preserving so commit output is
	// deterministic even though most callers only care about offset lookup.
	Terminals *ordmap.Map[int32, int]

	// Zeroed marks that any offset with no terminal is known to hold zero.
	// True only for the very first block of a program.
	Zeroed bool

	index map[Node]int
}

// New creates an empty DAG. zeroed should be true only for the program's
// initial block.
func New(zeroed bool) *DAG {
	return &DAG{
		Terminals: ordmap.New[int32, int](),
		Zeroed:    zeroed,
		index:     make(map[Node]int),
	}
}

func (d *DAG) intern(n Node) int {
	if idx, ok := d.index[n]; ok {
		return idx
	}
	idx := len(d.Nodes)
	d.Nodes = append(d.Nodes, n)
	d.index[n] = idx
	return idx
}

// TapeNode returns the node reading the tape cell at offset.
func (d *DAG) TapeNode(offset int32) int {
	return d.intern(Node{Kind: KindTape, Offset: offset})
}

// ConstNode returns the node holding the constant v.
func (d *DAG) ConstNode(v int32) int {
	return d.intern(Node{Kind: KindConst, Val: v})
}

// AddNode returns a node computing a+b, applying the mandatory-for-quality
// simplifications (x+0, 0+x, constant folding) opportunistically; none of
// these are required for correctness, only to avoid emitting dead
// arithmetic in the lowered LIR.
func (d *DAG) AddNode(a, b int) int {
	na, nb := d.Nodes[a], d.Nodes[b]
	if na.Kind == KindConst {
		if na.Val == 0 {
			return b
		}
		if nb.Kind == KindConst {
			return d.ConstNode(na.Val + nb.Val)
		}
	}
	if nb.Kind == KindConst && nb.Val == 0 {
		return a
	}
	return d.intern(Node{Kind: KindAdd, A: a, B: b})
}

// MulNode returns a node computing a*b, applying x*0, 0*x, x*1, 1*x, and
// constant folding opportunistically.
func (d *DAG) MulNode(a, b int) int {
	na, nb := d.Nodes[a], d.Nodes[b]
	if na.Kind == KindConst {
		switch na.Val {
		case 0:
			return d.ConstNode(0)
		case 1:
			return b
		}
		if nb.Kind == KindConst {
			return d.ConstNode(na.Val * nb.Val)
		}
	}
	if nb.Kind == KindConst {
		switch nb.Val {
		case 0:
			return d.ConstNode(0)
		case 1:
			return a
		}
	}
	return d.intern(Node{Kind: KindMul, A: a, B: b})
}

// TerminalOrTape returns the node representing the current value at offset:
// the pending terminal if one was already written in this block, else
// Const(0) when the block is known zeroed, else a fresh read of the tape
// cell itself.
func (d *DAG) TerminalOrTape(offset int32) int {
	if idx, ok := d.Terminals.Get(offset); ok {
		return idx
	}
	if d.Zeroed {
		return d.ConstNode(0)
	}
	return d.TapeNode(offset)
}

// SetTerminal records that offset will be written with the value of node
// when the block commits.
func (d *DAG) SetTerminal(offset int32, node int) {
	d.Terminals.Set(offset, node)
}

// Shift repositions the whole block by k: every terminal key moves by +k
// and every Tape node's Offset is rewritten by +k. Const, Add, and Mul nodes
// are unaffected, since they reference children by index rather than by
// offset. This is what lets the New optimizer graft a loop body's DAG
// (built in the body's own local coordinates, starting at offset 0) into
// the enclosing block's coordinate system before inlining a flat
// multiplier loop.
func (d *DAG) Shift(k int32) {
	for i := range d.Nodes {
		if d.Nodes[i].Kind == KindTape {
			d.Nodes[i].Offset += k
		}
	}
	shifted := ordmap.New[int32, int]()
	d.Terminals.Range(func(off int32, node int) bool {
		shifted.Set(off+k, node)
		return true
	})
	d.Terminals = shifted

	// The CSE table is keyed by Node value, and every Tape node's value
	// just changed; rebuild it so later interning still finds duplicates
	// instead of silently growing Nodes without bound.
	d.index = make(map[Node]int, len(d.Nodes))
	for i, n := range d.Nodes {
		d.index[n] = i
	}
}

// MatchTapePlusConst reports whether the node at idx has the shape
// Tape(offset) + Const(a) (in either operand order), returning a when it
// does. Used by the New optimizer's flat-multiplier-loop recognition.
func (d *DAG) MatchTapePlusConst(idx int, offset int32) (a int32, ok bool) {
	n := d.Nodes[idx]
	if n.Kind != KindAdd {
		return 0, false
	}
	na, nb := d.Nodes[n.A], d.Nodes[n.B]
	if na.Kind == KindTape && na.Offset == offset && nb.Kind == KindConst {
		return nb.Val, true
	}
	if nb.Kind == KindTape && nb.Offset == offset && na.Kind == KindConst {
		return na.Val, true
	}
	return 0, false
}

// IsConst reports whether the node at idx is a bare constant.
func (d *DAG) IsConst(idx int) (int32, bool) {
	n := d.Nodes[idx]
	if n.Kind == KindConst {
		return n.Val, true
	}
	return 0, false
}

// Graft copies every node of body into outer, applying outer's own CSE and
// simplification rules, and returns the body-index -> outer-index mapping.
// Because a DAG's node indices are always a valid topological order,
// walking body.Nodes in order guarantees every child mapping is already
// populated when its parent is reached.
func Graft(outer, body *DAG) map[int]int {
	mapping := make(map[int]int, len(body.Nodes))
	for i, n := range body.Nodes {
		switch n.Kind {
		case KindTape:
			mapping[i] = outer.TapeNode(n.Offset)
		case KindConst:
			mapping[i] = outer.ConstNode(n.Val)
		case KindAdd:
			mapping[i] = outer.AddNode(mapping[n.A], mapping[n.B])
		case KindMul:
			mapping[i] = outer.MulNode(mapping[n.A], mapping[n.B])
		}
	}
	return mapping
}
