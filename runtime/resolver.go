package runtime

import (
	"github.com/embervale/photon/plugin/bsdf"
	"github.com/embervale/photon/plugin/texture"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// resolver composes plugin/bsdf.Registry and plugin/texture.Registry
// into the single shadingtree.Resolver a Tree needs, as anticipated
// by both registries' doc comments: neither plugin package imports
// the other, so the runtime package — the one place that already
// depends on every plugin family — owns the glue.
type resolver struct {
	bsdfs    *bsdf.Registry
	textures *texture.Registry
}

func (g resolver) ResolveTexture(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return g.textures.ResolveTexture(t, obj)
}

func (g resolver) ResolveBSDF(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return g.bsdfs.ResolveBSDF(t, obj)
}
