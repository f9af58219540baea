// Package light implements the Light plugin graph (§4.D): a
// string-keyed factory registry, paralleling plugin/bsdf, that turns
// a scene Light object into shader fragments plus the importance-
// sampling metadata (isInfinite/isDelta/flux) the LightHierarchy
// builder needs.
//
// The field shapes (Position/Direction/Range/Intensity/R,G,B) are
// reimplemented from the teacher's engine.SunLight/PointLight/
// SpotLight — those are plain data structs there; here each becomes a
// stateless Plugin whose values are pulled from a scene.Object through
// a shadingtree.Tree instead of being struct fields.
package light

import (
	"fmt"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Plugin is a light's behavioral contract: emit its shader fragment,
// and report the metadata the hierarchy builder and integrators need
// without re-parsing the scene object.
type Plugin interface {
	Serialize(t *shadingtree.Tree, obj *scene.Object) (closureID int, err error)

	// IsInfinite reports whether the light has no finite position
	// (environment maps, directional/sun lights).
	IsInfinite() bool

	// IsDelta reports whether the light has zero angular extent
	// (point/spot/sun), excluding it from BSDF-side MIS weighting.
	IsDelta() bool

	// Position returns the light's world position and true, or the
	// zero vector and false for an infinite light.
	Position(obj *scene.Object) (pos linear.V3, ok bool)

	// Direction returns the light's principal direction and true for
	// directional/spot lights (an area light reports its surface
	// normal), or false otherwise.
	Direction(obj *scene.Object) (dir linear.V3, ok bool)

	// ComputeFlux estimates total emitted power for importance-sampling
	// construction (§4.D), combining intensity/color and (for area
	// lights) emitting surface area.
	ComputeFlux(obj *scene.Object) float32
}

// Factory builds a Plugin for a scene object whose type string matched
// one of the names it was registered under.
type Factory func() Plugin

// Registry maps a scene Light object's `type` string to a Factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a Registry with every light plugin described in
// §4.D pre-registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.RegisterAlias(func() Plugin { return &Point{} }, "point")
	r.RegisterAlias(func() Plugin { return &Spot{} }, "spot")
	r.RegisterAlias(func() Plugin { return &Directional{} }, "directional", "sun")
	r.RegisterAlias(func() Plugin { return &Area{} }, "area")
	r.RegisterAlias(func() Plugin { return &Envmap{} }, "envmap", "constant", "infinite")
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
// unknown type degrades to a zero-flux, delta-point stub rather than
// aborting the build (§4.G), the same propagation policy as BSDFs.
func (r *Registry) Create(obj *scene.Object) Plugin {
	typeName := obj.GetString("type", "")
	f, ok := r.factories[typeName]
	if !ok {
		return &unknown{reason: fmt.Sprintf("unknown light type %q", typeName)}
	}
	return f()
}
