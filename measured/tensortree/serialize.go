package tensortree

import "github.com/embervale/photon/serial"

func ndim(fanout int) uint32 {
	if fanout == 16 {
		return 4
	}
	return 3
}

// Export serializes doc to w per §6: for each component, in disk
// order, u32 ndim, u32 max-values-per-node, u32 node_count, u32
// value_count, then nodes[] (i32) and values[] (f32), both naked
// (length already given by node_count*fanout and value_count).
func Export(w *serial.Writer, doc *Document) {
	for _, comp := range []Component{FrontReflection, FrontTransmission, BackReflection, BackTransmission} {
		t := doc.Components[comp]
		w.Uint32(ndim(t.Fanout))
		w.Uint32(uint32(t.Fanout))
		w.Uint32(t.NodeCount)
		w.Uint32(t.ValueCount)
		serial.WriteInt32s(w, t.Nodes, true)
		serial.WriteFloat32s(w, t.Values, true)
	}
}

// Import deserializes a Document previously written by Export.
func Import(r *serial.Reader) *Document {
	var doc Document
	for _, comp := range []Component{FrontReflection, FrontTransmission, BackReflection, BackTransmission} {
		_ = r.Uint32() // ndim; implied by fanout below
		fanout := int(r.Uint32())
		nodeCount := r.Uint32()
		valueCount := r.Uint32()
		t := &Tree{
			Fanout:     fanout,
			NodeCount:  nodeCount,
			ValueCount: valueCount,
			Nodes:      serial.ReadInt32s(r, int(nodeCount)*fanout, true),
			Values:     serial.ReadFloat32s(r, int(valueCount), true),
		}
		doc.Components[comp] = t
	}
	return &doc
}
