package runtime

import "fmt"

// TonemapSettings controls the CPU tonemap pass (§4.E
// "tonemap(output_buffer, settings)"). The tonemapping curve itself is
// out of scope for this package (a Non-goal, same as the denoiser
// algorithm); Exposure and Clamp only govern the passthrough clamp
// below.
type TonemapSettings struct {
	// Exposure multiplies beauty before clamping. Zero means 1.0.
	Exposure float32
	// Clamp is the maximum channel value mapped to 255 before
	// clamping; zero means 1.0 (simple [0,1] display range).
	Clamp float32
}

// Tonemap reads the beauty channel and writes packed u32 RGBA into
// out, one entry per pixel (§4.E). It is a thin CPU copy/clamp pass,
// not a tonemapping algorithm: each channel is scaled by Exposure,
// clamped to [0, Clamp], and linearly mapped to [0, 255]. Alpha is
// always 255.
func (r *Runtime) Tonemap(out []uint32, settings TonemapSettings) error {
	if r.mainFB == nil {
		return newRuntimeErr("no scene loaded")
	}
	w, h := r.mainFB.Width, r.mainFB.Height
	if len(out) != w*h {
		return newRuntimeErr(fmt.Sprintf("output_buffer has %d entries, want %d (width*height)", len(out), w*h))
	}

	exposure := settings.Exposure
	if exposure == 0 {
		exposure = 1
	}
	clamp := settings.Clamp
	if clamp == 0 {
		clamp = 1
	}

	beauty, _, ok := r.mainFB.Get("")
	if !ok {
		return newRuntimeErr("beauty channel is not enabled")
	}

	for i := 0; i < w*h; i++ {
		var rgba uint32 = 0xff000000
		for c := 0; c < 3; c++ {
			v := beauty[i*3+c] * exposure
			if v < 0 {
				v = 0
			}
			if v > clamp {
				v = clamp
			}
			b := uint32(v / clamp * 255)
			rgba |= b << (8 * uint(c))
		}
		out[i] = rgba
	}
	return nil
}
