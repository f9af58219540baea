package tensortree

import "github.com/chewxy/math32"

// Tree is one linearized tensor-tree component: a flat nodes[] array
// (each internal node occupies `fanout` contiguous i32 cells, one per
// child) plus a values[] array holding leaf payloads.
//
// Cell encoding: a non-negative cell is the index in nodes[] where
// that child's own fanout-wide cell group begins. A negative cell
// is -(valuesOffset)-1, the start of that child's leaf values in
// values[] (1 value for a compressed leaf, fanout values for a full
// leaf) — both leaf shapes use the same offset-into-values[] scheme,
// the compressed case contributing a 1-element run instead of a
// fanout-element one.
//
// A compressed (1-value) leaf additionally carries its value with the
// sign bit forced negative, independent of the nodes[] cell sign
// above: that is what lets a reader tell a 1-value leaf apart from a
// fanout-value one using values[] alone, without cross-referencing
// nodes[]. leafMagnitude undoes the tagging.
type Tree struct {
	Fanout int
	Nodes  []int32
	Values []float32

	NodeCount  uint32
	ValueCount uint32
	Total      float32 // integrated flux
	RootIsLeaf bool
	MinProjSA  float32 // π / 2^maxDepth
}

// leafMagnitude recovers a stored values[] entry's true, non-negative
// scattering value, undoing appendLeaf's sign-bit tagging for
// compressed (1-value) leaves. Full (fanout-value) leaves are stored
// unmodified and pass through unchanged.
func leafMagnitude(v float32) float32 {
	return math32.Abs(v)
}

// build linearizes root into a Tree of the given fanout. depth below
// is 1-based throughout, root included, matching the convention the
// leaf-depth and flux-area computations are defined against.
func build(root *rawNode, fanout int) *Tree {
	t := &Tree{Fanout: fanout}

	if root.isLeaf() {
		t.RootIsLeaf = true
		t.appendLeaf(root.values)
		area := 1 / float32(len(root.values))
		for _, v := range root.values {
			t.Total += math32.Pi * v * area
		}
		t.MinProjSA = math32.Pi / 2
		return t
	}

	maxDepth := 1
	t.Total = t.linearize(root, 1, &maxDepth)
	t.MinProjSA = math32.Pi / math32.Pow(2, float32(maxDepth))
	return t
}

// linearize recursively writes node's fanout children into t.Nodes,
// depth-first, and returns the integrated flux contributed by the
// subtree rooted at node.
//
// Each internal node divides its own solid-angle share evenly among
// its children: area = 1/(depth*childCount), applied to any direct
// leaf child's value(s) and added to the total. An internal child
// recurses at depth+1 and computes its own area there.
func (t *Tree) linearize(node *rawNode, depth int, maxDepth *int) float32 {
	groupOffset := len(t.Nodes)
	t.Nodes = append(t.Nodes, make([]int32, len(node.children))...)
	t.NodeCount++

	area := 1 / float32(depth*len(node.children))
	var flux float32

	for i, child := range node.children {
		if child.isLeaf() {
			off := t.appendLeaf(child.values)
			t.Nodes[groupOffset+i] = -int32(off) - 1
			leafDepth := depth + 1
			if leafDepth > *maxDepth {
				*maxDepth = leafDepth
			}
			for _, v := range child.values {
				flux += math32.Pi * v * area
			}
		} else {
			childOffset := len(t.Nodes)
			flux += t.linearize(child, depth+1, maxDepth)
			t.Nodes[groupOffset+i] = int32(childOffset)
		}
	}
	return flux
}

func (t *Tree) appendLeaf(values []float32) int {
	off := len(t.Values)
	if len(values) == 1 {
		t.Values = append(t.Values, math32.Copysign(values[0], -1))
	} else {
		t.Values = append(t.Values, values...)
	}
	t.ValueCount += uint32(len(values))
	return off
}
