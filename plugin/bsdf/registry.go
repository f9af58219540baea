// Package bsdf implements the BSDF plugin graph (§4.D): a
// string-keyed factory registry that turns a scene BSDF object into
// code emitted through a shadingtree.Tree.
package bsdf

import (
	"fmt"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/rescache"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Plugin is the sole behavioral contract a BSDF node exposes:
// generate its code into the tree's current closure and return the
// closure's ID.
type Plugin interface {
	Serialize(t *shadingtree.Tree, obj *scene.Object) (closureID int, err error)
}

// Factory builds a Plugin for a scene object whose type string matched
// one of the names it was registered under.
type Factory func() Plugin

// Registry maps a scene object's `type` string to a Factory. Multiple
// aliases may share one Factory (glass/dielectric/roughdielectric/
// thindielectric all build the dielectric plugin).
type Registry struct {
	factories map[string]Factory

	// cache and warner back the Measured plugin's external-binary
	// export. Left nil until Configure is called, which the runtime
	// package does once it owns a rescache.Cache for the session.
	cache  *rescache.Cache
	warner *warn.Tracker
}

// Configure wires the external-resource cache and warning tracker that
// Measured (klems/djmeasured/neural) plugins need to export binary
// data and report malformed-input diagnostics.
func (r *Registry) Configure(cache *rescache.Cache, warner *warn.Tracker) {
	r.cache = cache
	r.warner = warner
}

// NewRegistry builds a Registry with every BSDF plugin described in
// §4.D pre-registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.RegisterAlias(func() Plugin { return &Diffuse{} }, "diffuse")
	r.RegisterAlias(func() Plugin { return &Dielectric{} }, "dielectric", "glass", "roughdielectric", "thindielectric")
	r.RegisterAlias(func() Plugin { return &Conductor{} }, "conductor", "roughconductor", "mirror")
	r.RegisterAlias(func() Plugin { return &Plastic{} }, "plastic", "roughplastic")
	r.RegisterAlias(func() Plugin { return &Phong{} }, "phong")
	r.RegisterAlias(func() Plugin { return &Principled{} }, "principled", "disney")
	r.RegisterAlias(func() Plugin { return &Blend{reg: r} }, "blend", "mix")
	r.RegisterAlias(func() Plugin { return &Add{reg: r} }, "add")
	r.RegisterAlias(func() Plugin { return &Mask{reg: r} }, "mask")
	r.RegisterAlias(func() Plugin { return &Cutoff{reg: r} }, "cutoff")
	r.RegisterAlias(func() Plugin { return &Normalmap{reg: r} }, "normalmap", "normal")
	r.RegisterAlias(func() Plugin { return &Bumpmap{reg: r} }, "bumpmap", "bump")
	r.RegisterAlias(func() Plugin { return &Doublesided{reg: r} }, "doublesided", "twosided")
	r.RegisterAlias(func() Plugin { return &Passthrough{} }, "passthrough", "null")
	r.RegisterAlias(func() Plugin { return &Transparent{} }, "transparent")
	r.RegisterAlias(func() Plugin { return &Measured{reg: r} }, "klems", "djmeasured", "neural")
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
// unknown type never fails the build (§4.G): it returns an Error
// plugin stub instead, carrying the unrecognized type name, which
// the stub logs when it is serialized.
func (r *Registry) Create(obj *scene.Object) Plugin {
	typeName := obj.GetString("type", "")
	f, ok := r.factories[typeName]
	if !ok {
		return &Error{Reason: fmt.Sprintf("unknown BSDF type %q", typeName)}
	}
	return f()
}

// ResolveBSDF implements shadingtree.Resolver's BSDF half, letting a
// Tree recurse into a named BSDF dependency without importing this
// package. The runtime package composes this with plugin/texture's
// ResolveTexture into the single Resolver a Tree is given.
func (r *Registry) ResolveBSDF(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return r.Create(obj).Serialize(t, obj)
}
