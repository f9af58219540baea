// Package texture implements the Texture plugin graph (§4.D),
// mirroring plugin/bsdf's shape: a string-keyed factory registry
// turning a scene Texture object into shader fragments through a
// shadingtree.Tree, and implementing shadingtree.Resolver's texture
// half so color/texture-valued BSDF properties can recurse into a
// named texture.
package texture

import (
	"fmt"

	"github.com/embervale/photon/rescache"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Plugin is a texture's behavioral contract: generate its code into
// the tree's current closure and return the closure's ID.
type Plugin interface {
	Serialize(t *shadingtree.Tree, obj *scene.Object) (closureID int, err error)
}

// Factory builds a Plugin for a scene object whose type string matched
// one of the names it was registered under.
type Factory func() Plugin

// Registry maps a scene Texture object's `type` string to a Factory.
type Registry struct {
	factories map[string]Factory
	cache     *rescache.Cache
}

// Configure wires the external-resource cache Image textures use to
// content-address their source file.
func (r *Registry) Configure(cache *rescache.Cache) { r.cache = cache }

// NewRegistry builds a Registry with every texture plugin described in
// §4.D pre-registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.RegisterAlias(func() Plugin { return &Constant{} }, "constant", "solid")
	r.RegisterAlias(func() Plugin { return &Checker{} }, "checker", "checkerboard")
	r.RegisterAlias(func() Plugin { return &Scale{} }, "scale")
	r.RegisterAlias(func() Plugin { return &Mix{reg: r} }, "mix", "blend")
	r.RegisterAlias(func() Plugin { return &Image{reg: r} }, "image", "bitmap")
	return r
}

// Register adds a single type-string -> Factory binding.
func (r *Registry) Register(typeName string, f Factory) { r.factories[typeName] = f }

// RegisterAlias registers f under every name in names.
func (r *Registry) RegisterAlias(f Factory, names ...string) {
	for _, n := range names {
		r.Register(n, f)
	}
}

// Create instantiates the plugin named by obj's "type" field. An
// unknown type degrades to a flat middle-gray stub (§4.G) instead of
// aborting the build.
func (r *Registry) Create(obj *scene.Object) Plugin {
	typeName := obj.GetString("type", "")
	f, ok := r.factories[typeName]
	if !ok {
		return &unknown{reason: fmt.Sprintf("unknown texture type %q", typeName)}
	}
	return f()
}

// ResolveTexture implements shadingtree.Resolver's texture half.
func (r *Registry) ResolveTexture(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return r.Create(obj).Serialize(t, obj)
}
