package shadingtree

// Options tunes how an addX call resolves a single scene-object
// property into emitted shader code (§4.C).
type Options struct {
	// Dynamic forces a registry lookup even when a literal value is
	// available, so the parameter can be changed between steps.
	Dynamic bool
	// Zero skips emission entirely when the resolved literal is
	// exactly zero — the caller's dead-code optimization.
	Zero bool
	// MakeGlobal additionally stores the parameter under its mangled
	// key in the runtime-wide Registry so external code may override
	// it via setParameter.
	MakeGlobal bool
}
