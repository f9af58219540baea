package light

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/serial"
)

// Entry is one finite light's flat-record contribution to the
// exported light table and the hierarchy builder's input
// (§4.D "embed step").
type Entry struct {
	Position  linear.V3
	Flux      float32
	Direction linear.V3 // zero vector for omnidirectional lights
	ID        int32
}

// Embed writes entries to w per the exported light-hierarchy format:
// a u32 count prefix, then one 16-float record per entry. Each of the
// four sub-fields (position, flux, direction, id) is padded out to a
// 4-float (16-byte) lane on its own, so every record is a clean
// 64-byte, SIMD-lane-aligned block — the same 16-byte alignment
// discipline the Klems binary export uses between
// sections, applied here within a single record instead of between
// them.
func Embed(w *serial.Writer, entries []Entry) {
	w.Uint32(uint32(len(entries)))
	for _, e := range entries {
		w.Float32(e.Position[0])
		w.Float32(e.Position[1])
		w.Float32(e.Position[2])
		w.Float32(0)

		w.Float32(e.Flux)
		w.Float32(0)
		w.Float32(0)
		w.Float32(0)

		w.Float32(e.Direction[0])
		w.Float32(e.Direction[1])
		w.Float32(e.Direction[2])
		w.Float32(0)

		w.Int32(e.ID)
		w.Int32(0)
		w.Int32(0)
		w.Int32(0)
	}
}

// Node is one node of the light BVH: a leaf (Left == Right == -1,
// LightID valid) or an inner node aggregating its two children's
// center, average direction and summed flux for cone/flux-based
// importance sampling during light-tree traversal.
type Node struct {
	Center       linear.V3
	AvgDirection linear.V3
	Flux         float32
	Left, Right  int32
	LightID      int32
}

func (n *Node) isLeaf() bool { return n.Left < 0 && n.Right < 0 }

// Hierarchy is the built binary point-BVH over a scene's finite
// lights (§4.D): non-SAH, split on the median of the widest axis of
// the node's light centers.
type Hierarchy struct {
	Nodes []Node
	Root  int32
}

// Build constructs a Hierarchy over entries. entries with zero length
// yield an empty Hierarchy (Root == -1): a scene with no finite
// lights is valid (it may still have an infinite envmap).
func Build(entries []Entry) *Hierarchy {
	h := &Hierarchy{Root: -1}
	if len(entries) == 0 {
		return h
	}
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	h.Root = int32(h.build(entries, idx))
	return h
}

func (h *Hierarchy) build(entries []Entry, idx []int) int {
	if len(idx) == 1 {
		e := entries[idx[0]]
		h.Nodes = append(h.Nodes, Node{
			Center:       e.Position,
			AvgDirection: e.Direction,
			Flux:         e.Flux,
			Left:         -1,
			Right:        -1,
			LightID:      e.ID,
		})
		return len(h.Nodes) - 1
	}

	axis := widestAxis(entries, idx)
	sort.Slice(idx, func(i, j int) bool {
		return entries[idx[i]].Position[axis] < entries[idx[j]].Position[axis]
	})
	mid := len(idx) / 2
	leftIdx, rightIdx := idx[:mid], idx[mid:]

	leftChild := h.build(entries, leftIdx)
	rightChild := h.build(entries, rightIdx)
	left, right := h.Nodes[leftChild], h.Nodes[rightChild]

	totalFlux := left.Flux + right.Flux
	center := scaleAdd(left.Center, left.Flux, right.Center, right.Flux, totalFlux)
	dir := averageDirection(left.AvgDirection, right.AvgDirection)

	h.Nodes = append(h.Nodes, Node{
		Center:       center,
		AvgDirection: dir,
		Flux:         totalFlux,
		Left:         int32(leftChild),
		Right:        int32(rightChild),
		LightID:      -1,
	})
	return len(h.Nodes) - 1
}

func widestAxis(entries []Entry, idx []int) int {
	lo, hi := entries[idx[0]].Position, entries[idx[0]].Position
	for _, i := range idx[1:] {
		p := entries[i].Position
		for a := 0; a < 3; a++ {
			if p[a] < lo[a] {
				lo[a] = p[a]
			}
			if p[a] > hi[a] {
				hi[a] = p[a]
			}
		}
	}
	extent := linear.V3{hi[0] - lo[0], hi[1] - lo[1], hi[2] - lo[2]}
	axis := 0
	for a := 1; a < 3; a++ {
		if extent[a] > extent[axis] {
			axis = a
		}
	}
	return axis
}

func scaleAdd(a linear.V3, wa float32, b linear.V3, wb float32, total float32) linear.V3 {
	if total == 0 {
		return linear.V3{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2, (a[2] + b[2]) / 2}
	}
	return linear.V3{
		(a[0]*wa + b[0]*wb) / total,
		(a[1]*wa + b[1]*wb) / total,
		(a[2]*wa + b[2]*wb) / total,
	}
}

func averageDirection(a, b linear.V3) linear.V3 {
	sum := linear.V3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
	length := sum[0]*sum[0] + sum[1]*sum[1] + sum[2]*sum[2]
	if length == 0 {
		return sum
	}
	inv := 1 / math32.Sqrt(length)
	return linear.V3{sum[0] * inv, sum[1] * inv, sum[2] * inv}
}
