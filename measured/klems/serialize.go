package klems

import "github.com/embervale/photon/serial"

const alignment = 16

// writeBasis writes a Basis per §6: theta-count entries of
// {CenterTheta, LowerTheta, UpperTheta, PhiCount} as f32/f32/f32/u32,
// then the linear-offset table (u32 per theta), then a u32 length
// prefix (the theta count, written last so the sign/shape of the
// leading data is self-describing for a streaming reader that already
// knows this is a basis section).
func writeBasis(w *serial.Writer, b *Basis) {
	for _, r := range b.Rows {
		w.Float32(r.CenterTheta)
		w.Float32(r.LowerTheta)
		w.Float32(r.UpperTheta)
		w.Uint32(r.PhiCount)
	}
	for _, off := range b.Offsets {
		w.Uint32(off)
	}
	w.Uint32(uint32(len(b.Rows)))
}

func readBasis(r *serial.Reader) *Basis {
	n := r.Uint32()
	rows := make([]ThetaRow, n)
	// Placeholder rows; populated below in declaration order, which on
	// disk is already the sorted order writeBasis used.
	for i := range rows {
		rows[i].CenterTheta = r.Float32()
		rows[i].LowerTheta = r.Float32()
		rows[i].UpperTheta = r.Float32()
		rows[i].PhiCount = r.Uint32()
	}
	offsets := make([]uint32, n)
	for i := range offsets {
		offsets[i] = r.Uint32()
	}
	_ = r.Uint32() // trailing length prefix, redundant with n

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return &Basis{Rows: rows, Perm: perm, Offsets: offsets}
}

// writeMatrix writes m's dense data and CDF as row-major f32 blocks
// (CDF is already stored transposed by buildColumnCDF).
func writeMatrix(w *serial.Writer, m *Matrix) {
	serial.WriteFloat32s(w, m.Data, true)
	serial.WriteFloat32s(w, m.CDF, true)
}

func readMatrix(r *serial.Reader, row, col *Basis) *Matrix {
	nr, nc := row.EntryCount(), col.EntryCount()
	return &Matrix{
		Row:  row,
		Col:  col,
		Data: serial.ReadFloat32s(r, nr*nc, true),
		CDF:  serial.ReadFloat32s(r, nr*nc, true),
	}
}

// Export serializes doc to w in the exact order and layout mandated
// by §6: front-reflection, front-transmission, back-reflection,
// back-transmission, each as row-basis / pad / column-basis / pad /
// matrix+CDF / pad.
func Export(w *serial.Writer, doc *Document) {
	for _, comp := range []Component{FrontReflection, FrontTransmission, BackReflection, BackTransmission} {
		m := doc.Components[comp]
		writeBasis(w, m.Row)
		w.WriteAlignmentPad(alignment)
		writeBasis(w, m.Col)
		w.WriteAlignmentPad(alignment)
		writeMatrix(w, m)
		w.WriteAlignmentPad(alignment)
	}
}

// Import deserializes a Document previously written by Export.
func Import(r *serial.Reader) *Document {
	var doc Document
	for _, comp := range []Component{FrontReflection, FrontTransmission, BackReflection, BackTransmission} {
		row := readBasis(r)
		r.ConsumeAlignmentPad(alignment)
		col := readBasis(r)
		r.ConsumeAlignmentPad(alignment)
		m := readMatrix(r, row, col)
		r.ConsumeAlignmentPad(alignment)
		doc.Components[comp] = m
	}
	return &doc
}
