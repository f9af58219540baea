package serial

import "math"

// Thin wrappers so serial.go reads uniformly; math.Float32bits and
// friends are bit-reinterpretation, not floating-point arithmetic, so
// they stay on the standard library rather than math32.
func mathFloat32bits(v float32) uint32      { return math.Float32bits(v) }
func mathFloat32frombits(b uint32) float32  { return math.Float32frombits(b) }
func mathFloat64bits(v float64) uint64      { return math.Float64bits(v) }
func mathFloat64frombits(b uint64) float64  { return math.Float64frombits(b) }
