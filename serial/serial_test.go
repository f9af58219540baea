package serial

import (
	"bytes"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Bool(true)
	w.Int8(-7)
	w.Uint8(200)
	w.Int16(-1234)
	w.Uint16(60000)
	w.Int32(-123456)
	w.Uint32(3000000000)
	w.Int64(-1 << 40)
	w.Uint64(1 << 50)
	w.Float32(3.25)
	w.Float64(6.5)
	w.String("hello")
	if w.Error() != nil {
		t.Fatalf("write: %v", w.Error())
	}

	r := NewReader(&buf)
	if got := r.Bool(); got != true {
		t.Errorf("Bool: got %v", got)
	}
	if got := r.Int8(); got != -7 {
		t.Errorf("Int8: got %v", got)
	}
	if got := r.Uint8(); got != 200 {
		t.Errorf("Uint8: got %v", got)
	}
	if got := r.Int16(); got != -1234 {
		t.Errorf("Int16: got %v", got)
	}
	if got := r.Uint16(); got != 60000 {
		t.Errorf("Uint16: got %v", got)
	}
	if got := r.Int32(); got != -123456 {
		t.Errorf("Int32: got %v", got)
	}
	if got := r.Uint32(); got != 3000000000 {
		t.Errorf("Uint32: got %v", got)
	}
	if got := r.Int64(); got != -1<<40 {
		t.Errorf("Int64: got %v", got)
	}
	if got := r.Uint64(); got != 1<<50 {
		t.Errorf("Uint64: got %v", got)
	}
	if got := r.Float32(); got != 3.25 {
		t.Errorf("Float32: got %v", got)
	}
	if got := r.Float64(); got != 6.5 {
		t.Errorf("Float64: got %v", got)
	}
	if got := r.String(); got != "hello" {
		t.Errorf("String: got %q", got)
	}
	if r.Error() != nil {
		t.Fatalf("read: %v", r.Error())
	}
}

func TestAlignmentPad(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint8(1)
	w.WriteAlignmentPad(16)
	if w.CurrentSize()%16 != 0 {
		t.Fatalf("CurrentSize %d not aligned to 16", w.CurrentSize())
	}
	w.Uint8(2)
	w.WriteAlignmentPad(16)
	if w.CurrentSize() != 32 {
		t.Fatalf("CurrentSize %d, want 32", w.CurrentSize())
	}

	r := NewReader(&buf)
	if got := r.Uint8(); got != 1 {
		t.Fatalf("first byte: got %v", got)
	}
	r.ConsumeAlignmentPad(16)
	if r.CurrentSize()%16 != 0 {
		t.Fatalf("reader CurrentSize %d not aligned", r.CurrentSize())
	}
	if got := r.Uint8(); got != 2 {
		t.Fatalf("second byte: got %v", got)
	}
}

func TestShortReadIsFatal(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 2})
	r := NewReader(buf)
	_ = r.Uint32()
	if r.Error() == nil {
		t.Fatal("expected error reading past EOF")
	}
	// Further reads must not panic and must keep returning zero values.
	if got := r.Uint32(); got != 0 {
		t.Fatalf("read after error: got %v, want 0", got)
	}
}

func TestFloat32sRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	in := []float32{1, 2, 3.5, -4}
	WriteFloat32s(w, in, false)

	r := NewReader(&buf)
	out := ReadFloat32s(r, 0, false)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("element %d: got %v, want %v", i, out[i], in[i])
		}
	}
}
