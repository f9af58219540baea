package technique

import (
	"strings"
	"testing"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

func newTestTree(sc *scene.Scene) *shadingtree.Tree {
	return shadingtree.New(sc, shadingtree.NewRegistry(), &warn.Tracker{})
}

func TestAOIsSingleVariantZeroPayload(t *testing.T) {
	ao := AO{}
	info := ao.Info(&scene.Object{})
	if len(info.Variants) != 1 {
		t.Fatalf("ao must declare exactly one variant, got %d", len(info.Variants))
	}
	if info.Variants[0].PrimaryPayloadCount != 0 {
		t.Fatalf("ao payload = %d, want 0", info.Variants[0].PrimaryPayloadCount)
	}
	if !info.DenoiserCompatible {
		t.Fatal("ao must be denoiser-compatible")
	}
}

func TestPathVsVolpathPayload(t *testing.T) {
	path := &Path{volumetric: false}
	volpath := &Path{volumetric: true}
	if got := path.Info(&scene.Object{}).Variants[0].PrimaryPayloadCount; got != 6 {
		t.Fatalf("path payload = %d, want 6", got)
	}
	if got := volpath.Info(&scene.Object{}).Variants[0].PrimaryPayloadCount; got != 7 {
		t.Fatalf("volpath payload = %d, want 7", got)
	}
	if !volpath.Info(&scene.Object{}).Variants[0].UsesMedia {
		t.Fatal("volpath must set UsesMedia")
	}
}

func TestLightTracerOverridesCamera(t *testing.T) {
	lt := LightTracer{}
	v := lt.Info(&scene.Object{}).Variants[0]
	if !v.RequiresExplicitCamera {
		t.Fatal("lighttracer must require an explicit camera override")
	}
	if v.PrimaryPayloadCount != 5 || v.SecondaryPayloadCount != 2 {
		t.Fatalf("lighttracer payload = %d+%d, want 5+2", v.PrimaryPayloadCount, v.SecondaryPayloadCount)
	}
	sc := scene.New()
	tree := newTestTree(sc)
	body, err := lt.BeforeIteration(tree, &scene.Object{}, 0)
	if err != nil {
		t.Fatalf("BeforeIteration: %v", err)
	}
	if !strings.Contains(body, "override_camera_generator") {
		t.Fatalf("expected camera-generator override in hook body:\n%s", body)
	}
}

func TestPhotonMapTwoPassSelectorAndPass0Override(t *testing.T) {
	pm := PhotonMap{}
	obj := &scene.Object{Props: map[string]scene.Property{
		"photons": {Kind: scene.KFloat, F: 1000},
	}}
	info := pm.Info(obj)
	if len(info.Variants) != 2 {
		t.Fatalf("ppm must declare two variants, got %d", len(info.Variants))
	}
	pass0 := info.Variants[0]
	if !pass0.LockFramebuffer {
		t.Fatal("ppm pass 0 must lock the framebuffer")
	}
	if pass0.OverrideSPI != 1 || pass0.OverrideWidth != 1000 || pass0.OverrideHeight != 1 {
		t.Fatalf("ppm pass 0 override = spi:%d w:%d h:%d, want 1,1000,1",
			pass0.OverrideSPI, pass0.OverrideWidth, pass0.OverrideHeight)
	}
	if got := pm.SelectVariants(0, obj); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("iteration 0 selector = %v, want [0 1]", got)
	}

	sc := scene.New()
	tree := newTestTree(sc)
	before0, err := pm.BeforeIteration(tree, obj, 0)
	if err != nil || !strings.Contains(before0, "reset_photon_cache") {
		t.Fatalf("pass 0 before-iteration hook = %q, err=%v", before0, err)
	}
	before1, err := pm.BeforeIteration(tree, obj, 1)
	if err != nil || !strings.Contains(before1, "build_photon_query_structure") {
		t.Fatalf("pass 1 before-iteration hook = %q, err=%v", before1, err)
	}
}

func TestAdaptiveEnvLearnsOnlyOnFirstIteration(t *testing.T) {
	ae := AdaptiveEnv{}
	if got := ae.SelectVariants(0, &scene.Object{}); len(got) != 2 {
		t.Fatalf("iteration 0 selector = %v, want both variants", got)
	}
	if got := ae.SelectVariants(1, &scene.Object{}); len(got) != 1 || got[0] != 1 {
		t.Fatalf("iteration 1 selector = %v, want [1]", got)
	}
}

func TestReSTIRResamplesAfterIteration(t *testing.T) {
	r := ReSTIR{}
	sc := scene.New()
	tree := newTestTree(sc)
	body, err := r.AfterIteration(tree, &scene.Object{}, 0)
	if err != nil {
		t.Fatalf("AfterIteration: %v", err)
	}
	if !strings.Contains(body, "restir_resample") {
		t.Fatalf("expected resampling call in after-iteration hook:\n%s", body)
	}
}

func TestRegistryDispatchesAliases(t *testing.T) {
	reg := NewRegistry()
	for _, typeName := range []string{"ao", "path", "volpath", "lighttracer", "ppm", "adaptive-env", "restir"} {
		obj := &scene.Object{Name: typeName, Type: scene.TTechnique, Props: map[string]scene.Property{
			"type": {Kind: scene.KString, S: typeName},
		}}
		if _, ok := reg.Create(obj).(*unknownTechnique); ok {
			t.Errorf("type %q resolved to unknownTechnique stub", typeName)
		}
	}
}

func TestUnknownTechniqueDegradesGracefully(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "mystery", Type: scene.TTechnique, Props: map[string]scene.Property{
		"type": {Kind: scene.KString, S: "not_a_real_technique"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	plugin := reg.Create(obj)
	tree := newTestTree(sc)
	if _, err := plugin.Serialize(tree, obj, 0); err != nil {
		t.Fatalf("unknown technique must never fail the build: %v", err)
	}
	if !strings.Contains(tree.Program(), "null_technique") {
		t.Fatalf("expected null_technique fallback:\n%s", tree.Program())
	}
}
