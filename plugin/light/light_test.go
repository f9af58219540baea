package light

import (
	"bytes"
	"strings"
	"testing"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/serial"
	"github.com/embervale/photon/shadingtree"
)

func newTestTree(sc *scene.Scene) *shadingtree.Tree {
	return shadingtree.New(sc, shadingtree.NewRegistry(), &warn.Tracker{})
}

func TestPointLightIsDeltaFinite(t *testing.T) {
	p := Point{}
	if p.IsInfinite() {
		t.Fatal("point light must be finite")
	}
	if !p.IsDelta() {
		t.Fatal("point light must be delta")
	}
	if _, ok := p.Direction(&scene.Object{}); ok {
		t.Fatal("point light has no direction")
	}
}

func TestDirectionalLightIsInfiniteDelta(t *testing.T) {
	d := Directional{}
	if !d.IsInfinite() || !d.IsDelta() {
		t.Fatalf("directional light must be infinite+delta, got infinite=%v delta=%v", d.IsInfinite(), d.IsDelta())
	}
	if _, ok := d.Position(&scene.Object{}); ok {
		t.Fatal("directional light has no position")
	}
}

func TestAreaLightIsNeitherInfiniteNorDelta(t *testing.T) {
	a := Area{}
	if a.IsInfinite() || a.IsDelta() {
		t.Fatal("area light must be finite and non-delta")
	}
}

func TestRegistryDispatchesAliases(t *testing.T) {
	reg := NewRegistry()
	for _, typeName := range []string{"point", "spot", "directional", "sun", "area", "envmap", "constant", "infinite"} {
		obj := &scene.Object{Name: typeName, Type: scene.TLight, Props: map[string]scene.Property{
			"type": {Kind: scene.KString, S: typeName},
		}}
		if _, ok := reg.Create(obj).(*unknown); ok {
			t.Errorf("type %q resolved to unknown stub", typeName)
		}
	}
}

func TestUnknownTypeDegradesGracefully(t *testing.T) {
	sc := scene.New()
	obj := &scene.Object{Name: "mystery", Type: scene.TLight, Props: map[string]scene.Property{
		"type": {Kind: scene.KString, S: "not_a_real_light"},
	}}
	sc.Arena.Add(obj)
	reg := NewRegistry()
	plugin := reg.Create(obj)
	tree := newTestTree(sc)
	if _, err := plugin.Serialize(tree, obj); err != nil {
		t.Fatalf("unknown light must never fail the build: %v", err)
	}
	if !strings.Contains(tree.Program(), "null_light") {
		t.Fatalf("expected null_light fallback:\n%s", tree.Program())
	}
}

func TestEmbedRoundTrip(t *testing.T) {
	entries := []Entry{
		{Position: linear.V3{1, 2, 3}, Flux: 10, Direction: linear.V3{0, 1, 0}, ID: 0},
		{Position: linear.V3{-1, 0, 5}, Flux: 20, Direction: linear.V3{1, 0, 0}, ID: 1},
	}
	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	Embed(w, entries)
	if err := w.Error(); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	r := serial.NewReader(&buf)
	count := r.Count()
	if count != uint32(len(entries)) {
		t.Fatalf("count = %d, want %d", count, len(entries))
	}
	for i := 0; i < int(count); i++ {
		var got Entry
		got.Position = linear.V3{r.Float32(), r.Float32(), r.Float32()}
		r.Float32() // pad
		got.Flux = r.Float32()
		r.Float32()
		r.Float32()
		r.Float32()
		got.Direction = linear.V3{r.Float32(), r.Float32(), r.Float32()}
		r.Float32()
		got.ID = r.Int32()
		r.Int32()
		r.Int32()
		r.Int32()
		if got != entries[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got, entries[i])
		}
	}
}

func TestHierarchyBuildAggregatesFlux(t *testing.T) {
	entries := []Entry{
		{Position: linear.V3{0, 0, 0}, Flux: 1, Direction: linear.V3{0, 1, 0}, ID: 0},
		{Position: linear.V3{10, 0, 0}, Flux: 3, Direction: linear.V3{0, 1, 0}, ID: 1},
	}
	h := Build(entries)
	if h.Root < 0 {
		t.Fatal("expected a non-empty hierarchy")
	}
	root := h.Nodes[h.Root]
	if root.isLeaf() {
		t.Fatal("two lights must build an inner node, not a leaf")
	}
	if root.Flux != 4 {
		t.Fatalf("root flux = %v, want 4", root.Flux)
	}
}

func TestHierarchyBuildSingleLightIsLeaf(t *testing.T) {
	entries := []Entry{{Position: linear.V3{1, 1, 1}, Flux: 5, ID: 7}}
	h := Build(entries)
	root := h.Nodes[h.Root]
	if !root.isLeaf() {
		t.Fatal("one light must build a leaf node")
	}
	if root.LightID != 7 {
		t.Fatalf("LightID = %d, want 7", root.LightID)
	}
}

func TestHierarchyBuildEmpty(t *testing.T) {
	h := Build(nil)
	if h.Root != -1 {
		t.Fatalf("empty hierarchy must have Root = -1, got %d", h.Root)
	}
}
