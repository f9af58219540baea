package bsdf

import (
	"fmt"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Normalmap perturbs the shading normal from a tangent-space normal
// texture before evaluating the wrapped inner BSDF.
type Normalmap struct{ reg *Registry }

func (n *Normalmap) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	inner := resolveInner(t, obj, "bsdf")
	normalMap, _ := t.AddTexture("normalmap", linear.V3{0.5, 0.5, 1.0}, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { perturb_normal_map(%s); return %s; }", sym, normalMap, inner)
	return finalizeClosure(t, id, sym, body)
}

// Bumpmap perturbs the shading normal from the finite-difference
// gradient of a height texture, sampled at the two neighboring
// texture-derivative positions.
type Bumpmap struct{ reg *Registry }

func (b *Bumpmap) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	inner := resolveInner(t, obj, "bsdf")
	height, _ := t.AddTexture("bumpmap", linear.V3{0, 0, 0}, shadingtree.Options{})
	strength, _ := t.AddNumber("strength", 1.0, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf(
		"BSDFShader %s() { perturb_bump_map(%s, texture_dx(), texture_dy(), %s); return %s; }",
		sym, height, strength, inner,
	)
	return finalizeClosure(t, id, sym, body)
}

// Doublesided flips the shading frame to face the ray on the back
// side of a surface instead of returning black there.
type Doublesided struct{ reg *Registry }

func (d *Doublesided) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	inner := resolveInner(t, obj, "bsdf")
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { face_forward_normal(); return %s; }", sym, inner)
	return finalizeClosure(t, id, sym, body)
}

// Passthrough forwards the ray through the surface with no shading
// interaction at all, aliased from `null`.
type Passthrough struct{}

func (Passthrough) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return passthrough_bsdf(); }", sym)
	return finalizeClosure(t, id, sym, body)
}

// Transparent is a pure transmissive BSDF with no refraction, used for
// clip-mask geometry that should be fully invisible to direct rays but
// still occlude shadow rays via its own weight.
type Transparent struct{}

func (Transparent) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	alpha, _ := t.AddColor("alpha", linear.V3{1, 1, 1}, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return transparent_bsdf(%s); }", sym, alpha)
	return finalizeClosure(t, id, sym, body)
}
