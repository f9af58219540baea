// Package serial implements the aligned, endian-stable binary encoding
// used to export measured-BSDF data and external-resource cache
// payloads.
//
// A Writer/Reader pair is always opened in one mode (write or read),
// mirroring how gltf.Pack/Unpack build one direction of a GLB blob at
// a time: callers never mix write and read calls on the same stream.
package serial

import (
	"encoding/binary"
	"io"
)

// Writer encodes values to an underlying byte sink.
type Writer struct {
	w   io.Writer
	n   int64
	err error
}

// NewWriter creates a Writer that appends to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Error returns the first error encountered, if any.
// Once set, every subsequent write becomes a no-op.
func (w *Writer) Error() error { return w.err }

// CurrentSize returns the number of bytes written so far.
func (w *Writer) CurrentSize() int64 { return w.n }

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	var n int
	n, w.err = w.w.Write(p)
	w.n += int64(n)
}

// Bool writes a single byte: 1 for true, 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.write([]byte{1})
	} else {
		w.write([]byte{0})
	}
}

func (w *Writer) Int8(v int8)   { w.write([]byte{byte(v)}) }
func (w *Writer) Uint8(v uint8) { w.write([]byte{v}) }

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.write(b[:])
}
func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}
func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.write(b[:])
}
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *Writer) Float32(v float32) { w.Uint32(mathFloat32bits(v)) }
func (w *Writer) Float64(v float64) { w.Uint64(mathFloat64bits(v)) }

// String writes a u32 length prefix followed by the raw UTF-8 bytes;
// no terminator is written.
func (w *Writer) String(s string) {
	w.Uint32(uint32(len(s)))
	w.write([]byte(s))
}

// Data writes p verbatim, with no length prefix.
func (w *Writer) Data(p []byte) { w.write(p) }

// WriteAlignmentPad emits zero bytes until CurrentSize() is a
// multiple of n. n must be a power of two.
func (w *Writer) WriteAlignmentPad(n int64) {
	if w.err != nil || n <= 1 {
		return
	}
	pad := (n - w.n%n) % n
	if pad == 0 {
		return
	}
	w.write(make([]byte, pad))
}

// SetError forces w into the failed state.
func (w *Writer) SetError(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Reader decodes values from an underlying byte source.
type Reader struct {
	r   io.Reader
	n   int64
	err error
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Error returns the first error encountered, if any.
func (r *Reader) Error() error { return r.err }

// CurrentSize returns the number of bytes read so far.
func (r *Reader) CurrentSize() int64 { return r.n }

func (r *Reader) read(p []byte) {
	if r.err != nil {
		clear(p)
		return
	}
	n, err := io.ReadFull(r.r, p)
	r.n += int64(n)
	if n != len(p) && err == nil {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		r.err = err
		clear(p)
	}
}

func (r *Reader) Bool() bool {
	var b [1]byte
	r.read(b[:])
	return b[0] != 0
}

func (r *Reader) Int8() int8   { var b [1]byte; r.read(b[:]); return int8(b[0]) }
func (r *Reader) Uint8() uint8 { var b [1]byte; r.read(b[:]); return b[0] }

func (r *Reader) Uint16() uint16 {
	var b [2]byte
	r.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}
func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Uint32() uint32 {
	var b [4]byte
	r.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}
func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	var b [8]byte
	r.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

func (r *Reader) Float32() float32 { return mathFloat32frombits(r.Uint32()) }
func (r *Reader) Float64() float64 { return mathFloat64frombits(r.Uint64()) }

// String reads a u32 length prefix followed by that many UTF-8 bytes.
func (r *Reader) String() string {
	n := r.Uint32()
	if r.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	return string(b)
}

// Data reads exactly len(p) bytes into p.
func (r *Reader) Data(p []byte) { r.read(p) }

// Count decodes a collection element count (a u32).
func (r *Reader) Count() uint32 { return r.Uint32() }

// ConsumeAlignmentPad skips bytes until CurrentSize() is a multiple
// of n, mirroring the padding Writer.WriteAlignmentPad produced.
func (r *Reader) ConsumeAlignmentPad(n int64) {
	if r.err != nil || n <= 1 {
		return
	}
	pad := (n - r.n%n) % n
	if pad == 0 {
		return
	}
	r.read(make([]byte, pad))
}

// SetError forces r into the failed state.
func (r *Reader) SetError(err error) {
	if r.err == nil {
		r.err = err
	}
}
