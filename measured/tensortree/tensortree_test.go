package tensortree

import (
	"bytes"
	"testing"

	"github.com/chewxy/math32"
	"github.com/embervale/photon/serial"
)

func TestTokenizeBasic(t *testing.T) {
	toks, err := tokenize("{ 1, 2 3 }")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []tokenKind{tokOpen, tokNumber, tokNumber, tokNumber, tokClose}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].kind, k)
		}
	}
}

func TestParseRootSingleChildEaten(t *testing.T) {
	// fanout 8: root has one child, which is a compressed (1-value) leaf.
	root, err := parseRoot("{ { 0.5 } }", 8)
	if err != nil {
		t.Fatalf("parseRoot: %v", err)
	}
	if !root.isLeaf() || len(root.values) != 1 || root.values[0] != 0.5 {
		t.Fatalf("root = %+v", root)
	}
}

func TestParseRootRejectsMultipleChildren(t *testing.T) {
	if _, err := parseRoot("{ {1} {2} }", 8); err == nil {
		t.Fatal("expected error: root must have exactly one child")
	}
}

func TestParseBlockRejectsWrongFanout(t *testing.T) {
	// Internal node with 3 children, fanout 8: hard error.
	_, err := parseRoot("{ { {1} {1} {1} } }", 8)
	if err == nil {
		t.Fatal("expected fan-out mismatch error")
	}
}

func TestParseBlockRejectsWrongLeafCount(t *testing.T) {
	// 3 values is neither 1 nor fanout(8).
	_, err := parseRoot("{ { 1 2 3 } }", 8)
	if err == nil {
		t.Fatal("expected leaf value count error")
	}
}

func TestBuildLinearizesDepthFirst(t *testing.T) {
	fanout := 2 // tiny synthetic fanout for a readable test tree
	root := &rawNode{children: []*rawNode{
		{values: []float32{1}},
		{children: []*rawNode{
			{values: []float32{2}},
			{values: []float32{3}},
		}},
	}}
	tree := build(root, fanout)
	if tree.RootIsLeaf {
		t.Fatal("root should not be a leaf")
	}
	if tree.NodeCount != 2 {
		t.Fatalf("NodeCount = %d, want 2", tree.NodeCount)
	}
	if tree.ValueCount != 3 {
		t.Fatalf("ValueCount = %d, want 3", tree.ValueCount)
	}
	// root (depth 1, 2 children) splits area 1/(1*2) between its leaf
	// child (value 1) and its internal child, which itself (depth 2, 2
	// children) splits area 1/(2*2) between its own leaf children
	// (values 2 and 3).
	want := math32.Pi*1*0.5 + (2+3)*math32.Pi*0.25
	if tree.Total != want {
		t.Fatalf("Total = %v, want %v", tree.Total, want)
	}
	// nodes[0] is child 0 of the root group (a leaf -> negative cell).
	if tree.Nodes[0] >= 0 {
		t.Fatalf("Nodes[0] = %d, want negative (leaf)", tree.Nodes[0])
	}
	// nodes[1] is child 1 of the root group (internal -> positive offset).
	if tree.Nodes[1] < 0 {
		t.Fatalf("Nodes[1] = %d, want non-negative (internal offset)", tree.Nodes[1])
	}
	// Single-value leaf 1's stored value must carry the sign bit
	// (testable property: a reader can tell a compressed leaf apart
	// from a full one using values[] alone).
	if !math32.Signbit(tree.Values[0]) {
		t.Fatalf("Values[0] = %v, want sign bit set", tree.Values[0])
	}
	if leafMagnitude(tree.Values[0]) != 1 {
		t.Fatalf("leafMagnitude(Values[0]) = %v, want 1", leafMagnitude(tree.Values[0]))
	}
}

func TestBuildEightLeafGroupSignBitsAndFlux(t *testing.T) {
	// One internal root with 8 compressed (1-value) leaf children,
	// payload { {1} {2} {3} {4} {5} {6} {7} {8} }.
	children := make([]*rawNode, 8)
	for i := range children {
		children[i] = &rawNode{values: []float32{float32(i + 1)}}
	}
	tree := build(&rawNode{children: children}, 8)

	if tree.RootIsLeaf {
		t.Fatal("root should not be a leaf")
	}
	if len(tree.Nodes) != 8 {
		t.Fatalf("len(Nodes) = %d, want 8", len(tree.Nodes))
	}
	for i, cell := range tree.Nodes {
		if cell >= 0 {
			t.Fatalf("Nodes[%d] = %d, want negative (leaf)", i, cell)
		}
	}
	if len(tree.Values) != 8 {
		t.Fatalf("len(Values) = %d, want 8", len(tree.Values))
	}
	for i, v := range tree.Values {
		if !math32.Signbit(v) {
			t.Fatalf("Values[%d] = %v, want sign bit set", i, v)
		}
		if leafMagnitude(v) != float32(i+1) {
			t.Fatalf("leafMagnitude(Values[%d]) = %v, want %v", i, leafMagnitude(v), i+1)
		}
	}

	// total = pi * (1+2+...+8) / 8
	want := math32.Pi * 36 / 8
	if math32.Abs(tree.Total-want) > 1e-3 {
		t.Fatalf("Total = %v, want %v", tree.Total, want)
	}

	// The 8 leaves sit one level below the root: maxDepth = 2, so
	// MinProjSA = pi / 2^2 = pi/4.
	wantProjSA := math32.Pi / 4
	if math32.Abs(tree.MinProjSA-wantProjSA) > 1e-6 {
		t.Fatalf("MinProjSA = %v, want %v", tree.MinProjSA, wantProjSA)
	}
}

func TestRootIsLeafTree(t *testing.T) {
	tree := build(&rawNode{values: []float32{0.25, 0.5, 0.75, 1, 1, 1, 1, 1}}, 8)
	if !tree.RootIsLeaf {
		t.Fatal("expected RootIsLeaf")
	}
	if tree.NodeCount != 0 {
		t.Fatalf("NodeCount = %d, want 0", tree.NodeCount)
	}
	if tree.ValueCount != 8 {
		t.Fatalf("ValueCount = %d, want 8", tree.ValueCount)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tree := build(&rawNode{children: []*rawNode{
		{values: []float32{1}},
		{values: []float32{2}},
	}}, 2)
	var doc Document
	for c := range doc.Components {
		doc.Components[c] = tree
	}

	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	Export(w, &doc)
	if w.Error() != nil {
		t.Fatalf("Export: %v", w.Error())
	}

	r := serial.NewReader(&buf)
	got := Import(r)
	if r.Error() != nil {
		t.Fatalf("Import: %v", r.Error())
	}
	for c, gt := range got.Components {
		if gt.Fanout != tree.Fanout || gt.NodeCount != tree.NodeCount || gt.ValueCount != tree.ValueCount {
			t.Fatalf("component %d metadata mismatch: %+v", c, gt)
		}
		for i, v := range gt.Values {
			if v != tree.Values[i] {
				t.Fatalf("component %d Values[%d] = %v, want %v", c, i, v, tree.Values[i])
			}
		}
	}
}
