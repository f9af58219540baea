package technique

import (
	"fmt"

	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

func finalizeTechnique(t *shadingtree.Tree, id int, function, body string) (int, error) {
	for _, h := range t.PullHeader() {
		t.Emit("%s\n", h)
	}
	if _, isNew := t.MemoizeGroup(body, function); isNew {
		t.Emit("%s\n", body)
	}
	return id, t.EndClosure()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// AO is the ambient-occlusion technique: zero-payload, single
// variant, denoiser-compatible per spec §4.D's table.
type AO struct{}

func (AO) Info(*scene.Object) TechniqueInfo {
	return TechniqueInfo{
		Name:               "ao",
		DenoiserCompatible: true,
		Variants: []VariantInfo{{
			PrimaryPayloadCount: 0,
			ShadowHandlingMode:  ShadowSimple,
			UsesLights:          false,
		}},
	}
}

func (AO) SelectVariants(int, *scene.Object) []int { return []int{0} }

func (AO) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	radius, _ := t.AddNumber("radius", 1.0, shadingtree.Options{})
	samples, _ := t.AddInteger("samples", 1, shadingtree.Options{})
	sym := t.Symbol("technique")
	body := fmt.Sprintf("TechniqueShader %s() { return ao_technique(%s, %s); }", sym, radius, samples)
	return finalizeTechnique(t, id, sym, body)
}

func (AO) BeforeIteration(*shadingtree.Tree, *scene.Object, int) (string, error) { return "", nil }
func (AO) AfterIteration(*shadingtree.Tree, *scene.Object, int) (string, error)  { return "", nil }

// Path is the unidirectional path tracer, aliased to volpath with
// volumetric==true turning on participating-media handling (payload 6
// vs 7 per spec §4.D's table).
type Path struct{ volumetric bool }

func (p *Path) payloadCount() int {
	if p.volumetric {
		return 7
	}
	return 6
}

func (p *Path) name() string {
	if p.volumetric {
		return "volpath"
	}
	return "path"
}

func (p *Path) Info(obj *scene.Object) TechniqueInfo {
	aovs := []string{}
	if obj.GetBool("aov_normal", false) {
		aovs = append(aovs, "normal")
	}
	if obj.GetBool("aov_albedo", false) {
		aovs = append(aovs, "albedo")
	}
	return TechniqueInfo{
		Name:               p.name(),
		EnabledAOVs:        aovs,
		DenoiserCompatible: true,
		Variants: []VariantInfo{{
			PrimaryPayloadCount: p.payloadCount(),
			ShadowHandlingMode:  ShadowAdvanced,
			UsesLights:          true,
			UsesMedia:           p.volumetric,
		}},
	}
}

func (*Path) SelectVariants(int, *scene.Object) []int { return []int{0} }

func (p *Path) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	maxDepth, _ := t.AddInteger("max_depth", 8, shadingtree.Options{})
	minDepth, _ := t.AddInteger("min_depth", 0, shadingtree.Options{})
	clamp, _ := t.AddNumber("clamp", 0, shadingtree.Options{})
	nee, _ := t.AddComputedInteger("next_event_estimation", boolToInt(obj.GetBool("nee", true)), shadingtree.Options{})
	sym := t.Symbol("technique")
	fn := "path_technique"
	if p.volumetric {
		fn = "volpath_technique"
	}
	body := fmt.Sprintf("TechniqueShader %s() { return %s(%s, %s, %s, %s); }",
		sym, fn, maxDepth, minDepth, clamp, nee)
	return finalizeTechnique(t, id, sym, body)
}

func (*Path) BeforeIteration(*shadingtree.Tree, *scene.Object, int) (string, error) { return "", nil }
func (*Path) AfterIteration(*shadingtree.Tree, *scene.Object, int) (string, error)  { return "", nil }

// LightTracer launches rays from lights instead of the camera, so it
// overrides the camera-side ray generator and splits its payload into
// a 5-word primary lane and a 2-word secondary lane that carries the
// light-side throughput back to the sensor (spec §4.D: "payload 5+2").
type LightTracer struct{}

func (LightTracer) Info(*scene.Object) TechniqueInfo {
	return TechniqueInfo{
		Name: "lighttracer",
		Variants: []VariantInfo{{
			PrimaryPayloadCount:    5,
			SecondaryPayloadCount:  2,
			ShadowHandlingMode:     ShadowAdvanced,
			UsesLights:             true,
			RequiresExplicitCamera: true,
		}},
	}
}

func (LightTracer) SelectVariants(int, *scene.Object) []int { return []int{0} }

func (LightTracer) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	maxDepth, _ := t.AddInteger("max_depth", 8, shadingtree.Options{})
	sym := t.Symbol("technique")
	body := fmt.Sprintf("TechniqueShader %s() { return lighttracer_technique(%s); }", sym, maxDepth)
	return finalizeTechnique(t, id, sym, body)
}

func (LightTracer) BeforeIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error) {
	sym := t.Symbol("before_iteration")
	return fmt.Sprintf("void %s() { override_camera_generator(light_tracer_ray_gen); }", sym), nil
}
func (LightTracer) AfterIteration(*shadingtree.Tree, *scene.Object, int) (string, error) {
	return "", nil
}

// PhotonMap is the two-pass progressive photon-mapping technique
// (spec §4.D / §8 S5): pass 0 emits photons from lights into a query
// structure at width=photon-count with the framebuffer locked; pass 1
// gathers them against the real framebuffer.
type PhotonMap struct{}

func (PhotonMap) Info(obj *scene.Object) TechniqueInfo {
	photons := int(obj.GetNumber("photons", 1000))
	return TechniqueInfo{
		Name: "ppm",
		Variants: []VariantInfo{
			{ // pass 0: photon emission
				PrimaryPayloadCount: 7,
				ShadowHandlingMode:  ShadowAdvanced,
				UsesLights:          true,
				LockFramebuffer:     true,
				OverrideSPI:         1,
				OverrideWidth:       photons,
				OverrideHeight:      1,
			},
			{ // pass 1: gather
				PrimaryPayloadCount: 7,
				ShadowHandlingMode:  ShadowAdvanced,
				UsesLights:          true,
			},
		},
	}
}

func (PhotonMap) SelectVariants(iteration int, *scene.Object) []int { return []int{0, 1} }

func (PhotonMap) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	maxLightDepth, _ := t.AddInteger("max_light_depth", 4, shadingtree.Options{})
	radius, _ := t.AddNumber("radius", 0.01, shadingtree.Options{})
	sym := t.Symbol("technique")
	fn := "ppm_gather"
	if variant == 0 {
		fn = "ppm_emit"
	}
	body := fmt.Sprintf("TechniqueShader %s() { return %s(%s, %s); }", sym, fn, maxLightDepth, radius)
	return finalizeTechnique(t, id, sym, body)
}

func (PhotonMap) BeforeIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error) {
	sym := t.Symbol("before_iteration")
	if variant == 0 {
		return fmt.Sprintf("void %s() { reset_photon_cache(); }", sym), nil
	}
	return fmt.Sprintf("void %s() { build_photon_query_structure(); }", sym), nil
}

func (PhotonMap) AfterIteration(*shadingtree.Tree, *scene.Object, int) (string, error) {
	return "", nil
}

// AdaptiveEnv learns an environment-map sampling CDF in a first pass
// and uses it to importance-sample the envmap in a second (spec
// §4.D: "payload 11/6, 2 variants, envmap CDF learning pass +
// selector").
type AdaptiveEnv struct{}

func (AdaptiveEnv) Info(*scene.Object) TechniqueInfo {
	return TechniqueInfo{
		Name: "adaptive-env",
		Variants: []VariantInfo{
			{ // learning pass
				PrimaryPayloadCount: 11,
				ShadowHandlingMode:  ShadowAdvanced,
				UsesLights:          true,
			},
			{ // sampling pass
				PrimaryPayloadCount: 6,
				ShadowHandlingMode:  ShadowAdvanced,
				UsesLights:          true,
			},
		},
	}
}

// SelectVariants runs the learning pass only on the first iteration;
// every later iteration reuses the learned CDF and only samples.
func (AdaptiveEnv) SelectVariants(iteration int, *scene.Object) []int {
	if iteration == 0 {
		return []int{0, 1}
	}
	return []int{1}
}

func (AdaptiveEnv) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	maxDepth, _ := t.AddInteger("max_depth", 8, shadingtree.Options{})
	sym := t.Symbol("technique")
	fn := "adaptive_env_sample"
	if variant == 0 {
		fn = "adaptive_env_learn"
	}
	body := fmt.Sprintf("TechniqueShader %s() { return %s(%s); }", sym, fn, maxDepth)
	return finalizeTechnique(t, id, sym, body)
}

func (AdaptiveEnv) BeforeIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error) {
	if variant != 0 {
		return "", nil
	}
	sym := t.Symbol("before_iteration")
	return fmt.Sprintf("void %s() { reset_envmap_cdf_accumulator(); }", sym), nil
}

func (AdaptiveEnv) AfterIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error) {
	if variant != 0 {
		return "", nil
	}
	sym := t.Symbol("after_iteration")
	return fmt.Sprintf("void %s() { finalize_envmap_cdf(); }", sym), nil
}

// ReSTIR resamples candidates across an after-iteration pass (spec
// §4.D: "payload 6, after-iteration resampling pass").
type ReSTIR struct{}

func (ReSTIR) Info(*scene.Object) TechniqueInfo {
	return TechniqueInfo{
		Name: "restir",
		Variants: []VariantInfo{{
			PrimaryPayloadCount: 6,
			ShadowHandlingMode:  ShadowAdvancedWithMaterials,
			UsesLights:          true,
		}},
	}
}

func (ReSTIR) SelectVariants(int, *scene.Object) []int { return []int{0} }

func (ReSTIR) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	candidates, _ := t.AddInteger("candidates", 32, shadingtree.Options{})
	sym := t.Symbol("technique")
	body := fmt.Sprintf("TechniqueShader %s() { return restir_technique(%s); }", sym, candidates)
	return finalizeTechnique(t, id, sym, body)
}

func (ReSTIR) BeforeIteration(*shadingtree.Tree, *scene.Object, int) (string, error) {
	return "", nil
}

func (ReSTIR) AfterIteration(t *shadingtree.Tree, obj *scene.Object, variant int) (string, error) {
	sym := t.Symbol("after_iteration")
	return fmt.Sprintf("void %s() { restir_resample(); }", sym), nil
}

// unknownTechnique substitutes for an unrecognized technique type: a
// single zero-payload variant that emits a null shader instead of
// aborting scene load (§4.G).
type unknownTechnique struct{ reason string }

func (u *unknownTechnique) Info(*scene.Object) TechniqueInfo {
	return TechniqueInfo{
		Name:     "unknown",
		Variants: []VariantInfo{{PrimaryPayloadCount: 0, ShadowHandlingMode: ShadowSimple}},
	}
}

func (*unknownTechnique) SelectVariants(int, *scene.Object) []int { return []int{0} }

func (u *unknownTechnique) Serialize(t *shadingtree.Tree, obj *scene.Object, variant int) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("technique")
	body := fmt.Sprintf("TechniqueShader %s() { return null_technique(); }", sym)
	t.Warn("technique", obj.Name, "%s", u.reason)
	return finalizeTechnique(t, id, sym, body)
}

func (*unknownTechnique) BeforeIteration(*shadingtree.Tree, *scene.Object, int) (string, error) {
	return "", nil
}
func (*unknownTechnique) AfterIteration(*shadingtree.Tree, *scene.Object, int) (string, error) {
	return "", nil
}
