package texture

import (
	"fmt"
	"os"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/rescache"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

func finalizeTexture(t *shadingtree.Tree, id int, function, body string) (int, error) {
	for _, h := range t.PullHeader() {
		t.Emit("%s\n", h)
	}
	if _, isNew := t.MemoizeGroup(body, function); isNew {
		t.Emit("%s\n", body)
	}
	return id, t.EndClosure()
}

// Constant is a flat, uniform-color texture.
type Constant struct{}

func (Constant) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	color, _ := t.AddColor("color", linear.V3{1, 1, 1}, shadingtree.Options{})
	sym := t.Symbol("texture")
	body := fmt.Sprintf("TextureShader %s() { return constant_texture(%s); }", sym, color)
	return finalizeTexture(t, id, sym, body)
}

// Checker alternates between two colors on a uv grid, grounded on the
// procedural-pattern texture every renderer's example scenes use to
// exercise uv-varying shading without an external image file.
type Checker struct{}

func (Checker) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	color1, _ := t.AddColor("color1", linear.V3{0, 0, 0}, shadingtree.Options{})
	color2, _ := t.AddColor("color2", linear.V3{1, 1, 1}, shadingtree.Options{})
	scale, _ := t.AddNumber("scale", 8.0, shadingtree.Options{})
	sym := t.Symbol("texture")
	body := fmt.Sprintf("TextureShader %s() { return checker_texture(%s, %s, %s); }", sym, color1, color2, scale)
	return finalizeTexture(t, id, sym, body)
}

// Scale multiplies an inner texture (or a flat default when no
// `texture` reference is given) by a uniform factor.
type Scale struct{}

func (Scale) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	inner, _ := t.AddTexture("texture", linear.V3{1, 1, 1}, shadingtree.Options{})
	scale, _ := t.AddNumber("scale", 1.0, shadingtree.Options{})
	sym := t.Symbol("texture")
	body := fmt.Sprintf("TextureShader %s() { return scale_texture(%s, %s); }", sym, inner, scale)
	return finalizeTexture(t, id, sym, body)
}

// Mix linearly interpolates between two textures by a scalar factor.
type Mix struct{ reg *Registry }

func (m *Mix) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	t1, _ := t.AddTexture("texture1", linear.V3{0, 0, 0}, shadingtree.Options{})
	t2, _ := t.AddTexture("texture2", linear.V3{1, 1, 1}, shadingtree.Options{})
	factor, _ := t.AddNumber("factor", 0.5, shadingtree.Options{})
	sym := t.Symbol("texture")
	body := fmt.Sprintf("TextureShader %s() { return mix_texture(%s, %s, %s); }", sym, t1, t2, factor)
	return finalizeTexture(t, id, sym, body)
}

// Image loads a bitmap file, content-addressing it through the
// external-resource cache the same way plugin/bsdf's Measured does for
// its measurement files.
type Image struct{ reg *Registry }

func (img *Image) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("texture")
	resourceID, err := img.export(obj)
	if err != nil {
		t.Warn("texture", obj.Name, "image texture %q: %v", obj.Name, err)
		body := fmt.Sprintf("TextureShader %s() { return constant_texture(vec3(0.5f, 0.5f, 0.5f)); }", sym)
		return finalizeTexture(t, id, sym, body)
	}
	uScale, _ := t.AddNumber("u_scale", 1.0, shadingtree.Options{})
	vScale, _ := t.AddNumber("v_scale", 1.0, shadingtree.Options{})
	body := fmt.Sprintf(
		"TextureShader %s() { return image_texture(load_external_resource(\"%s\"), %s, %s); }",
		sym, resourceID, uScale, vScale,
	)
	return finalizeTexture(t, id, sym, body)
}

func (img *Image) export(obj *scene.Object) (string, error) {
	if img.reg == nil || img.reg.cache == nil {
		return "", fmt.Errorf("no external-resource cache configured")
	}
	filename := obj.GetString("filename", "")
	if filename == "" {
		return "", fmt.Errorf("missing filename")
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	fingerprint := rescache.Fingerprint(raw)
	id := rescache.LogicalID("image", fingerprint)
	if _, ok := img.reg.cache.Lookup(id); !ok {
		if _, err := img.reg.cache.Store(id, raw); err != nil {
			return "", err
		}
	}
	return id, nil
}

// unknown substitutes for an unrecognized texture type: a flat
// middle-gray stub so a dangling or misspelled texture reference never
// aborts the build (§4.G).
type unknown struct{ reason string }

func (u unknown) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("texture")
	body := fmt.Sprintf("TextureShader %s() { return constant_texture(vec3(0.5f, 0.5f, 0.5f)); }", sym)
	t.Warn("texture", obj.Name, "%s", u.reason)
	return finalizeTexture(t, id, sym, body)
}
