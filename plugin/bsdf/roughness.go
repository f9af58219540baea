package bsdf

import (
	"fmt"

	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// setupRoughness emits the microfacet-distribution expression for a
// flat-parameter BSDF (§4.D "Roughness helper"). It reads either the
// isotropic `roughness` property or the explicit `roughness_u`/
// `roughness_v` pair. If neither is present, the surface is treated as
// a perfect delta distribution and ok is false: the caller must not
// emit a microfacet-distribution lookup.
func setupRoughness(t *shadingtree.Tree, obj *scene.Object) (expr string, ok bool) {
	if !obj.HasProperty("roughness") && !obj.HasProperty("roughness_u") && !obj.HasProperty("roughness_v") {
		return "", false
	}

	dist := obj.GetString("distribution", "vndf_ggx")
	switch dist {
	case "vndf_ggx", "ggx", "beckmann":
	default:
		dist = "vndf_ggx"
	}

	var ru, rv string
	if obj.HasProperty("roughness_u") || obj.HasProperty("roughness_v") {
		ru, _ = t.AddNumber("roughness_u", 0.1, shadingtree.Options{})
		rv, _ = t.AddNumber("roughness_v", 0.1, shadingtree.Options{})
	} else {
		r, _ := t.AddNumber("roughness", 0.1, shadingtree.Options{})
		ru, rv = r, r
	}

	return fmt.Sprintf("microfacet_%s(%s, %s)", dist, ru, rv), true
}

// finalizeClosure pulls the current closure's header, writes it plus
// body to the program stream (skipping re-emission when the group-ID
// memoizer recognizes an identical (body, function) pair already
// emitted elsewhere), and closes the closure.
func finalizeClosure(t *shadingtree.Tree, id int, function, body string) (int, error) {
	for _, h := range t.PullHeader() {
		t.Emit("%s\n", h)
	}
	if _, isNew := t.MemoizeGroup(body, function); isNew {
		t.Emit("%s\n", body)
	}
	return id, t.EndClosure()
}
