package bsdf

import (
	"fmt"

	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Error is the substitute BSDF emitted whenever a scene object names
// an unrecognized type, or a combinator's inner reference cannot be
// resolved (§4.G: a bad BSDF reference is logged, never a fatal
// compile failure). It serializes to an opaque black BSDF so the
// generated shader still compiles and renders, just wrong-looking.
type Error struct {
	Reason string
}

func (e *Error) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return emitErrorBSDF(t, obj, e.Reason)
}

// emitErrorBSDF opens a closure (obj may be nil when the failure has
// no backing scene object, e.g. a dangling combinator reference),
// warns once, and emits a black passthrough BSDF in its place.
func emitErrorBSDF(t *shadingtree.Tree, obj *scene.Object, reason string) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return diffuse_bsdf(vec3(0.0f, 0.0f, 0.0f)); }", sym)
	name := "<anonymous>"
	if obj != nil {
		name = obj.Name
	}
	t.Warn("bsdf", name, "%s", reason)
	return finalizeClosure(t, id, sym, body)
}
