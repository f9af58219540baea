package texture

import (
	"strings"
	"testing"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// textureOnlyResolver satisfies shadingtree.Resolver for tests that
// never touch a BSDF reference.
type textureOnlyResolver struct{ reg *Registry }

func (r textureOnlyResolver) ResolveTexture(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return r.reg.ResolveTexture(t, obj)
}
func (r textureOnlyResolver) ResolveBSDF(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	return 0, nil
}

func newTestTree(sc *scene.Scene, reg *Registry) *shadingtree.Tree {
	tree := shadingtree.New(sc, shadingtree.NewRegistry(), &warn.Tracker{})
	tree.SetResolver(textureOnlyResolver{reg: reg})
	return tree
}

func TestConstantEmitsClosure(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "white", Type: scene.TTexture, Props: map[string]scene.Property{
		"type":  {Kind: scene.KString, S: "constant"},
		"color": {Kind: scene.KVec3, V3: linear.V3{1, 1, 1}},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	tree := newTestTree(sc, reg)

	if _, err := reg.Create(obj).Serialize(tree, obj); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(tree.Program(), "constant_texture") {
		t.Fatalf("program missing constant_texture call:\n%s", tree.Program())
	}
}

func TestCheckerEmitsClosure(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "grid", Type: scene.TTexture, Props: map[string]scene.Property{
		"type": {Kind: scene.KString, S: "checker"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	tree := newTestTree(sc, reg)

	if _, err := reg.Create(obj).Serialize(tree, obj); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(tree.Program(), "checker_texture") {
		t.Fatalf("program missing checker_texture call:\n%s", tree.Program())
	}
}

func TestScaleResolvesNamedInnerTexture(t *testing.T) {
	sc := scene.New()
	inner := &scene.Object{Name: "base", Type: scene.TTexture, Props: map[string]scene.Property{
		"type":  {Kind: scene.KString, S: "constant"},
		"color": {Kind: scene.KVec3, V3: linear.V3{0.5, 0.5, 0.5}},
	}}
	outer := &scene.Object{Name: "scaled", Type: scene.TTexture, Props: map[string]scene.Property{
		"type":    {Kind: scene.KString, S: "scale"},
		"texture": {Kind: scene.KRef, S: "base"},
		"scale":   {Kind: scene.KFloat, F: 2.0},
	}}
	sc.Arena.Add(inner)
	sc.Arena.Add(outer)

	reg := NewRegistry()
	tree := newTestTree(sc, reg)

	if _, err := reg.Create(outer).Serialize(tree, outer); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	prog := tree.Program()
	if !strings.Contains(prog, "scale_texture") || !strings.Contains(prog, "constant_texture") {
		t.Fatalf("expected both scale_texture and the resolved inner constant_texture:\n%s", prog)
	}
}

func TestMixEmitsClosure(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "m", Type: scene.TTexture, Props: map[string]scene.Property{
		"type": {Kind: scene.KString, S: "mix"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	tree := newTestTree(sc, reg)

	if _, err := reg.Create(obj).Serialize(tree, obj); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(tree.Program(), "mix_texture") {
		t.Fatalf("program missing mix_texture call:\n%s", tree.Program())
	}
}

func TestImageWithoutCacheFallsBackToGray(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "img", Type: scene.TTexture, Props: map[string]scene.Property{
		"type":     {Kind: scene.KString, S: "image"},
		"filename": {Kind: scene.KString, S: "/nonexistent/file.png"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry() // Configure never called: no cache installed
	tree := newTestTree(sc, reg)

	if _, err := reg.Create(obj).Serialize(tree, obj); err != nil {
		t.Fatalf("Image.Serialize must degrade, not fail: %v", err)
	}
	if !strings.Contains(tree.Program(), "constant_texture(vec3(0.5f, 0.5f, 0.5f))") {
		t.Fatalf("expected gray fallback in program:\n%s", tree.Program())
	}
}

func TestUnknownTypeDegradesGracefully(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "mystery", Type: scene.TTexture, Props: map[string]scene.Property{
		"type": {Kind: scene.KString, S: "not_a_real_texture"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	plugin := reg.Create(obj)
	if _, ok := plugin.(*unknown); !ok {
		t.Fatalf("Create(unknown type) = %T, want *unknown", plugin)
	}

	tree := newTestTree(sc, reg)
	if _, err := plugin.Serialize(tree, obj); err != nil {
		t.Fatalf("unknown texture must never fail the build: %v", err)
	}
}
