package shadingtree

import (
	"strings"
	"testing"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
)

func TestBalancedClosures(t *testing.T) {
	sc := scene.New()
	tree := New(sc, NewRegistry(), &warn.Tracker{})

	id := tree.BeginClosure(&scene.Object{Name: "a", Type: scene.TBSDF})
	if tree.CurrentClosureID() != id {
		t.Fatalf("CurrentClosureID = %d, want %d", tree.CurrentClosureID(), id)
	}
	if err := tree.EndClosure(); err != nil {
		t.Fatalf("EndClosure: %v", err)
	}
	if err := tree.EndClosure(); err == nil {
		t.Fatal("expected error ending an already-balanced stack")
	}
}

func TestAddNumberLiteralVsDynamic(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "glass", Type: scene.TBSDF, Props: map[string]scene.Property{
		"ior": {Kind: scene.KFloat, F: 1.5},
	}}
	tree := New(sc, NewRegistry(), &warn.Tracker{})
	tree.BeginClosure(obj)

	lit, ok := tree.AddNumber("ior", 1.0, Options{})
	if !ok || lit != "1.5f" {
		t.Fatalf("literal ior = %q, %v", lit, ok)
	}
	if len(tree.PullHeader()) != 0 {
		t.Fatal("literal path should not pull a header")
	}

	dyn, ok := tree.AddNumber("ior", 1.0, Options{Dynamic: true})
	if !ok {
		t.Fatal("dynamic add should succeed")
	}
	header := tree.PullHeader()
	if len(header) != 1 || !strings.Contains(header[0], "get_global_parameter_f32") {
		t.Fatalf("header = %v", header)
	}
	if !strings.Contains(header[0], dyn) {
		t.Fatalf("inline expr %q not declared in header %v", dyn, header)
	}
}

func TestAddNumberZeroSkipsEmission(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Type: scene.TBSDF, Props: map[string]scene.Property{
		"clamp": {Kind: scene.KFloat, F: 0},
	}}
	tree := New(sc, NewRegistry(), &warn.Tracker{})
	tree.BeginClosure(obj)
	if _, ok := tree.AddNumber("clamp", 0, Options{Zero: true}); ok {
		t.Fatal("expected Zero option to skip emission for a zero literal")
	}
}

func TestSetForceDynamicRoutesThroughRegistry(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Type: scene.TBSDF, Props: map[string]scene.Property{
		"ior": {Kind: scene.KFloat, F: 1.5},
	}}
	tree := New(sc, NewRegistry(), &warn.Tracker{})
	tree.SetForceDynamic(true)
	tree.BeginClosure(obj)

	expr, ok := tree.AddNumber("ior", 1.0, Options{})
	if !ok {
		t.Fatal("forced-dynamic add should still succeed")
	}
	header := tree.PullHeader()
	if len(header) != 1 || !strings.Contains(header[0], "get_global_parameter_f32") {
		t.Fatalf("forced dynamic should emit a registry lookup, header = %v", header)
	}
	if !strings.Contains(header[0], expr) {
		t.Fatalf("inline expr %q not declared in header %v", expr, header)
	}
}

func TestSetForceDynamicOverridesZero(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Type: scene.TBSDF, Props: map[string]scene.Property{
		"clamp": {Kind: scene.KFloat, F: 0},
	}}
	tree := New(sc, NewRegistry(), &warn.Tracker{})
	tree.SetForceDynamic(true)
	tree.BeginClosure(obj)
	if _, ok := tree.AddNumber("clamp", 0, Options{Zero: true}); !ok {
		t.Fatal("forceDynamic should override Zero's emission skip")
	}
}

func TestMakeGlobalVisibleInRegistry(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "tech", Type: scene.TTechnique}
	reg := NewRegistry()
	tree := New(sc, reg, &warn.Tracker{})
	tree.BeginClosure(obj)
	tree.AddComputedFloat("__tech_clamp", 2.5, Options{Dynamic: true, MakeGlobal: true})

	v, ok := reg.Get("tech.__tech_clamp")
	if !ok || v.Kind != VFloat || v.F != 2.5 {
		t.Fatalf("registry entry = %+v, %v", v, ok)
	}
}

func TestAddColorRecursesThroughResolver(t *testing.T) {
	sc := scene.New()
	texObj := &scene.Object{Name: "checker", Type: scene.TTexture}
	if _, err := sc.Arena.Add(texObj); err != nil {
		t.Fatal(err)
	}
	bsdfObj := &scene.Object{Name: "mat", Type: scene.TBSDF, Props: map[string]scene.Property{
		"albedo": {Kind: scene.KString, S: "checker"},
	}}

	tree := New(sc, NewRegistry(), &warn.Tracker{})
	tree.SetResolver(fakeResolver{})
	tree.BeginClosure(bsdfObj)

	expr, ok := tree.AddColor("albedo", linear.V3{1, 1, 1}, Options{})
	if !ok || !strings.HasPrefix(expr, "eval_") {
		t.Fatalf("expr = %q, %v", expr, ok)
	}
	if _, found := tree.GetClosureID("checker"); !found {
		t.Fatal("expected checker's closure ID to be tracked")
	}
}

type fakeResolver struct{}

func (fakeResolver) ResolveTexture(t *Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	t.Emit("float eval_%d() { return 1.0f; }\n", id)
	t.EndClosure()
	return id, nil
}

func (fakeResolver) ResolveBSDF(t *Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	t.EndClosure()
	return id, nil
}
