// Package technique implements the Technique plugin graph (§4.D) and
// the per-iteration variant-selection contract the runtime's stepping
// loop drives (§4.E).
package technique

import (
	"fmt"

	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// ShadowHandlingMode selects how a variant resolves occlusion queries.
type ShadowHandlingMode int

const (
	ShadowSimple ShadowHandlingMode = iota
	ShadowAdvanced
	ShadowAdvancedWithMaterials
)

// VariantInfo declares one pass a technique expands into per
// iteration (spec §4.D's table of per-VariantInfo fields).
type VariantInfo struct {
	PrimaryPayloadCount    int
	SecondaryPayloadCount  int
	ShadowHandlingMode     ShadowHandlingMode
	UsesLights             bool
	UsesMedia              bool
	RequiresExplicitCamera bool
	LockFramebuffer        bool
	// OverrideSPI/Width/Height are 0 when the variant uses the
	// runtime's ambient sample-per-iteration/framebuffer size.
	OverrideSPI    int
	OverrideWidth  int
	OverrideHeight int
	// EmitterPayloadInitializer is a shader source expression
	// initializing this variant's per-ray payload before launch.
	EmitterPayloadInitializer string
}

// TechniqueInfo is a technique's static declaration: its AOV set and
// the variants it may expand into.
type TechniqueInfo struct {
	Name               string
	EnabledAOVs        []string
	DenoiserCompatible bool
	Variants           []VariantInfo
}

// Plugin is a technique's behavioral contract: declare its
// TechniqueInfo, pick which variants run on a given iteration, and
// generate shader code for a picked variant.
type Plugin interface {
	Info(obj *scene.Object) TechniqueInfo
	// SelectVariants returns the variant indices (into Info's
	// Variants slice) that should run for the given iteration number
	// (0-based). Most techniques return a single, constant index;
	// multi-pass techniques like ppm may return more than one.
	SelectVariants(iteration int, obj *scene.Object) []int
	// Serialize generates the shader body for one variant.
	Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (closureID int, err error)
	// BeforeIteration/AfterIteration emit optional per-pass hook
	// bodies (§4.D "CallbackGenerators"). An empty string means the
	// technique has no hook for that pass.
	BeforeIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error)
	AfterIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error)
}

// Factory builds a Plugin for a scene object whose type string
// matched one of the names it was registered under.
type Factory func() Plugin

// Registry maps a scene Technique object's `type` string to a Factory.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a Registry with every technique in §4.D's table
// pre-registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.RegisterAlias(func() Plugin { return &AO{} }, "ao")
	r.RegisterAlias(func() Plugin { return &Path{volumetric: false} }, "path")
	r.RegisterAlias(func() Plugin { return &Path{volumetric: true} }, "volpath")
	r.RegisterAlias(func() Plugin { return &LightTracer{} }, "lighttracer", "light_tracer")
	r.RegisterAlias(func() Plugin { return &PhotonMap{} }, "ppm", "photonmap", "photon_map")
	r.RegisterAlias(func() Plugin { return &AdaptiveEnv{} }, "adaptive-env", "adaptive_env")
	r.RegisterAlias(func() Plugin { return &ReSTIR{} }, "restir")
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
// unknown type degrades to a single-variant, zero-payload null
// technique instead of aborting scene load (§4.G).
func (r *Registry) Create(obj *scene.Object) Plugin {
	typeName := obj.GetString("type", "")
	f, ok := r.factories[typeName]
	if !ok {
		return &unknownTechnique{reason: fmt.Sprintf("unknown technique type %q", typeName)}
	}
	return f()
}
