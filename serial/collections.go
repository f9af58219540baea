package serial

// Writable is implemented by types that know how to serialize
// themselves element-by-element (the "non-trivial" path of §4.A).
type Writable interface {
	SerializeTo(w *Writer)
}

// Readable is the Reader counterpart of Writable.
type Readable interface {
	DeserializeFrom(r *Reader)
}

// WriteFloat32s writes a slice of float32 as a contiguous block: it
// is trivially copyable, so (unless naked) only a u32 count precedes
// the raw bytes.
func WriteFloat32s(w *Writer, v []float32, naked bool) {
	if !naked {
		w.Uint32(uint32(len(v)))
	}
	for _, x := range v {
		w.Float32(x)
	}
}

// ReadFloat32s reads a slice written by WriteFloat32s. If naked, n
// gives the element count (the caller already knows it); otherwise
// the count is read from the stream and n is ignored.
func ReadFloat32s(r *Reader, n int, naked bool) []float32 {
	if !naked {
		n = int(r.Count())
	}
	if n < 0 {
		r.SetError(errNegativeCount)
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.Float32()
	}
	return out
}

// WriteUint32s writes a slice of uint32 as a contiguous block.
func WriteUint32s(w *Writer, v []uint32, naked bool) {
	if !naked {
		w.Uint32(uint32(len(v)))
	}
	for _, x := range v {
		w.Uint32(x)
	}
}

// ReadUint32s reads a slice written by WriteUint32s.
func ReadUint32s(r *Reader, n int, naked bool) []uint32 {
	if !naked {
		n = int(r.Count())
	}
	if n < 0 {
		r.SetError(errNegativeCount)
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.Uint32()
	}
	return out
}

// WriteInt32s writes a slice of int32 as a contiguous block.
func WriteInt32s(w *Writer, v []int32, naked bool) {
	if !naked {
		w.Uint32(uint32(len(v)))
	}
	for _, x := range v {
		w.Int32(x)
	}
}

// ReadInt32s reads a slice written by WriteInt32s.
func ReadInt32s(r *Reader, n int, naked bool) []int32 {
	if !naked {
		n = int(r.Count())
	}
	if n < 0 {
		r.SetError(errNegativeCount)
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = r.Int32()
	}
	return out
}

// WriteSlice serializes a slice of a non-trivial Writable type,
// recursing into each element's SerializeTo.
func WriteSlice[T Writable](w *Writer, v []T, naked bool) {
	if !naked {
		w.Uint32(uint32(len(v)))
	}
	for i := range v {
		v[i].SerializeTo(w)
	}
}

// ReadSlice deserializes a slice written by WriteSlice. new creates
// a fresh zero-valued element for DeserializeFrom to populate.
func ReadSlice[T Readable](r *Reader, n int, naked bool, new func() T) []T {
	if !naked {
		n = int(r.Count())
	}
	if n < 0 {
		r.SetError(errNegativeCount)
		return nil
	}
	out := make([]T, n)
	for i := range out {
		v := new()
		v.DeserializeFrom(r)
		out[i] = v
	}
	return out
}

// WriteMatrixRowMajor writes an r×c matrix stored in row-major order.
// m must have length r*c.
func WriteMatrixRowMajor(w *Writer, m []float32) { WriteFloat32s(w, m, true) }

// WriteMatrixColMajor writes an r×c matrix given in row-major order
// out to column-major order on the wire (caller's option, §4.A).
func WriteMatrixColMajor(w *Writer, m []float32, rows, cols int) {
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			w.Float32(m[r*cols+c])
		}
	}
}

var errNegativeCount = errCount{}

type errCount struct{}

func (errCount) Error() string { return "serial: negative element count in stream" }
