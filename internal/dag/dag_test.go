package dag_test

import (
	"testing"

	"bfoptc/internal/dag"
)

func TestAddNodeConstantFolding(t *testing.T) {
	d := dag.New(true)
	n := d.AddNode(d.ConstNode(2), d.ConstNode(3))
	v, ok := d.IsConst(n)
	if !ok || v != 5 {
		t.Fatalf("got %v,%v want 5,true", v, ok)
	}
}

func TestCSEReusesIdenticalNodes(t *testing.T) {
	d := dag.New(false)
	a := d.TapeNode(1)
	b := d.TapeNode(1)
	if a != b {
		t.Fatalf("expected CSE to reuse tape node: %d != %d", a, b)
	}
	if len(d.Nodes) != 1 {
		t.Fatalf("expected 1 node after CSE, got %d", len(d.Nodes))
	}
}

func TestShiftRepositionsTapeNodesAndTerminals(t *testing.T) {
	d := dag.New(false)
	d.SetTerminal(0, d.AddNode(d.TapeNode(0), d.ConstNode(-1)))
	d.Shift(5)

	node, ok := d.Terminals.Get(5)
	if !ok {
		t.Fatalf("expected terminal at offset 5 after shift")
	}
	a, ok := d.MatchTapePlusConst(node, 5)
	if !ok || a != -1 {
		t.Fatalf("expected tape[5]+(-1), got a=%d ok=%v", a, ok)
	}
}

// TestGraftCopiesNodesApplyingOuterCSE checks the general-purpose grafting
// primitive: copying a standalone body DAG into an outer DAG must share
// structure with whatever the outer DAG already has, not just append nodes
// blindly.
func TestGraftCopiesNodesApplyingOuterCSE(t *testing.T) {
	outer := dag.New(false)
	preexisting := outer.TapeNode(2)

	body := dag.New(false)
	bodyNode := body.TapeNode(2)
	body.SetTerminal(2, bodyNode)

	mapping := dag.Graft(outer, body)
	grafted, ok := mapping[bodyNode]
	if !ok {
		t.Fatalf("expected body node to be present in mapping")
	}
	if grafted != preexisting {
		t.Fatalf("expected grafted Tape(2) to reuse outer's existing node %d, got %d", preexisting, grafted)
	}
}
