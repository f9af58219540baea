package bsdf

import (
	"fmt"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// resolveInner evaluates a named-reference property ("bsdf1", "bsdf2",
// "bsdf", ...) into its emitted eval call. A missing or dangling
// reference degrades to an Error stub rather than aborting the whole
// closure (§4.G).
func resolveInner(t *shadingtree.Tree, obj *scene.Object, name string) string {
	ref, isRef := obj.GetRef(name)
	if !isRef {
		id, _ := emitErrorBSDF(t, nil, fmt.Sprintf("%s: property %q is not a BSDF reference", obj.Name, name))
		return fmt.Sprintf("eval_%d()", id)
	}
	expr, _, err := t.ResolveBSDFRef(ref)
	if err != nil {
		id, _ := emitErrorBSDF(t, nil, fmt.Sprintf("%s: %v", obj.Name, err))
		return fmt.Sprintf("eval_%d()", id)
	}
	return expr
}

// refName returns the raw object name a property refers to, or "" if
// it isn't a reference. Used to detect the same-sub-BSDF shortcut.
func refName(obj *scene.Object, name string) string {
	ref, isRef := obj.GetRef(name)
	if !isRef {
		return ""
	}
	return ref
}

// Blend linearly interpolates two inner BSDFs by a scalar weight. When
// both properties name the same sub-BSDF, the weight is irrelevant and
// the combinator degenerates to a plain passthrough of that BSDF.
type Blend struct{ reg *Registry }

func (b *Blend) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	n1, n2 := refName(obj, "bsdf1"), refName(obj, "bsdf2")
	if n1 != "" && n1 == n2 {
		return b.reg.generateNamed(t, n1)
	}
	id := t.BeginClosure(obj)
	e1 := resolveInner(t, obj, "bsdf1")
	e2 := resolveInner(t, obj, "bsdf2")
	weight, _ := t.AddNumber("weight", 0.5, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return blend_bsdf(%s, %s, %s); }", sym, e1, e2, weight)
	return finalizeClosure(t, id, sym, body)
}

// Add sums two inner BSDFs, weighted. A zero weight on either side
// shortcuts to a plain scale of the remaining side instead of emitting
// a pointless zero-contribution term.
type Add struct{ reg *Registry }

func (a *Add) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	e1 := resolveInner(t, obj, "bsdf1")
	e2 := resolveInner(t, obj, "bsdf2")
	weight1, _ := t.AddNumber("weight1", 1.0, shadingtree.Options{})
	weight2, _ := t.AddNumber("weight2", 1.0, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	var body string
	switch {
	case obj.GetNumber("weight1", 1.0) == 0:
		body = fmt.Sprintf("BSDFShader %s() { return scale_bsdf(%s, %s); }", sym, e2, weight2)
	case obj.GetNumber("weight2", 1.0) == 0:
		body = fmt.Sprintf("BSDFShader %s() { return scale_bsdf(%s, %s); }", sym, e1, weight1)
	default:
		body = fmt.Sprintf("BSDFShader %s() { return add_bsdf(%s, %s, %s, %s); }", sym, e1, weight1, e2, weight2)
	}
	return finalizeClosure(t, id, sym, body)
}

// Mask selects between an inner BSDF and nothing (null transmission)
// based on an opacity texture/scalar.
type Mask struct{ reg *Registry }

func (m *Mask) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	inner := resolveInner(t, obj, "bsdf")
	opacity, _ := t.AddTexture("opacity", linear.V3{1, 1, 1}, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return mask_bsdf(%s, %s); }", sym, inner, opacity)
	return finalizeClosure(t, id, sym, body)
}

// Cutoff compares a weight against a fixed threshold at compile time
// and picks one inner BSDF deterministically, instead of branching at
// shade time the way Blend/Mask do.
type Cutoff struct{ reg *Registry }

func (c *Cutoff) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	weight := obj.GetNumber("weight", 0.5)
	threshold := obj.GetNumber("threshold", 0.5)
	n1, n2 := refName(obj, "bsdf1"), refName(obj, "bsdf2")
	if n1 != "" && n1 == n2 {
		return c.reg.generateNamed(t, n1)
	}
	if weight < threshold {
		return c.reg.generateNamedOrError(t, obj, n1, "bsdf1")
	}
	return c.reg.generateNamedOrError(t, obj, n2, "bsdf2")
}

// generateNamed recursively serializes the BSDF named by n, checking
// the tree's object-closure-ID table first so a sibling property that
// names the same object reuses the already-emitted closure.
func (r *Registry) generateNamed(t *shadingtree.Tree, n string) (int, error) {
	if id, ok := t.GetClosureID(n); ok {
		return id, nil
	}
	sc := t.Scene()
	if sc == nil {
		return emitErrorBSDF(t, nil, fmt.Sprintf("no scene available to resolve %q", n))
	}
	obj, ok := sc.Arena.ByName(n)
	if !ok {
		return emitErrorBSDF(t, nil, fmt.Sprintf("unknown BSDF %q", n))
	}
	return r.Create(obj).Serialize(t, obj)
}

// generateNamedOrError is generateNamed, but falls back to an Error
// stub attributed to the combinator's own object when the referenced
// property name is missing or dangling.
func (r *Registry) generateNamedOrError(t *shadingtree.Tree, obj *scene.Object, n, propName string) (int, error) {
	if n == "" {
		return emitErrorBSDF(t, obj, fmt.Sprintf("%s: property %q is not a BSDF reference", obj.Name, propName))
	}
	return r.generateNamed(t, n)
}
