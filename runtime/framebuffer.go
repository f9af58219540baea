package runtime

// Framebuffer holds one render target's worth of AOV channels. The
// beauty channel is keyed by the empty string, matching §4.E's
// "getFramebuffer(aov_name) ... aov='' is beauty".
//
// Each channel is a flat RGB triple-per-pixel []float32 slice, the
// same flat float32 layout the Klems matrices already use in this
// repo, rather than an array-of-structs pixel type.
type Framebuffer struct {
	Width, Height int
	channels      map[string][]float32
}

// NewFramebuffer allocates a Framebuffer sized width x height with an
// always-present beauty channel.
func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{Width: width, Height: height, channels: make(map[string][]float32)}
	fb.channels[""] = make([]float32, width*height*3)
	return fb
}

// EnsureAOV allocates (if absent) the named auxiliary channel.
func (fb *Framebuffer) EnsureAOV(name string) {
	if _, ok := fb.channels[name]; !ok {
		fb.channels[name] = make([]float32, fb.Width*fb.Height*3)
	}
}

// Get returns the named channel (aov="" is beauty) and its row stride
// in float32 elements, or ok=false if the AOV was never enabled.
func (fb *Framebuffer) Get(aov string) (data []float32, stride int, ok bool) {
	data, ok = fb.channels[aov]
	if !ok {
		return nil, 0, false
	}
	return data, fb.Width * 3, true
}

// Clear zeroes the named channel. aov="" clears the beauty channel
// only; ClearAll zeroes every channel.
func (fb *Framebuffer) Clear(aov string) bool {
	data, ok := fb.channels[aov]
	if !ok {
		return false
	}
	for i := range data {
		data[i] = 0
	}
	return true
}

// ClearAll zeroes every AOV channel, including beauty.
func (fb *Framebuffer) ClearAll() {
	for name := range fb.channels {
		fb.Clear(name)
	}
}
