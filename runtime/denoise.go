package runtime

// Denoiser is the out-of-scope collaborator spec §1 calls out
// ("Non-goals: ... reimplementing the denoiser"): the runtime driver
// only knows how to invoke one at the right point in the iteration
// loop (§4.E step 5), reading the normal/albedo AOVs and writing a
// side buffer, and to degrade gracefully when it fails (§4.G: "Warn
// and continue without denoising").
type Denoiser interface {
	// Denoise reads the beauty, normal and albedo channels (normal
	// and albedo may be nil if the technique didn't enable them) and
	// writes the denoised result into out. out is sized
	// width*height*3 float32s, matching Framebuffer's channel layout.
	Denoise(beauty, normal, albedo []float32, width, height int, out []float32) error
}

// passthroughDenoiser is the default Denoiser: it copies beauty to
// out unmodified. It never fails, so it is a safe default for runtimes
// that have not wired a real denoiser backend (an external
// collaborator this package does not implement).
type passthroughDenoiser struct{}

func (passthroughDenoiser) Denoise(beauty, _, _ []float32, _, _ int, out []float32) error {
	copy(out, beauty)
	return nil
}
