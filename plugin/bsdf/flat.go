package bsdf

import (
	"fmt"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

// Diffuse is a pure Lambertian BSDF.
type Diffuse struct{}

func (Diffuse) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	albedo, _ := t.AddColor("albedo", linear.V3{0.8, 0.8, 0.8}, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return diffuse_bsdf(%s); }", sym, albedo)
	return finalizeClosure(t, id, sym, body)
}

// Dielectric models smooth or rough glass, selectable via the `ior`
// and roughness properties; aliased from glass/roughdielectric/
// thindielectric (the `thin` flag distinguishes the thin-shell case).
type Dielectric struct{}

func (Dielectric) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	ior, _ := t.AddNumber("ior", 1.5, shadingtree.Options{})
	thin, _ := t.AddComputedInteger("thin", boolToInt(obj.GetBool("thin", false)), shadingtree.Options{})
	dist, hasDist := setupRoughness(t, obj)
	sym := t.Symbol("bsdf")
	var body string
	if hasDist {
		body = fmt.Sprintf("BSDFShader %s() { return rough_dielectric_bsdf(%s, %s, %s); }", sym, ior, dist, thin)
	} else {
		body = fmt.Sprintf("BSDFShader %s() { return smooth_dielectric_bsdf(%s, %s); }", sym, ior, thin)
	}
	return finalizeClosure(t, id, sym, body)
}

// Conductor models smooth or rough metal via complex IOR (eta/k),
// aliased from roughconductor/mirror.
type Conductor struct{}

func (Conductor) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	eta, _ := t.AddColor("eta", linear.V3{0.2, 0.92, 1.1}, shadingtree.Options{})
	k, _ := t.AddColor("k", linear.V3{3.9, 2.45, 2.14}, shadingtree.Options{})
	dist, hasDist := setupRoughness(t, obj)
	sym := t.Symbol("bsdf")
	var body string
	if hasDist {
		body = fmt.Sprintf("BSDFShader %s() { return rough_conductor_bsdf(%s, %s, %s); }", sym, eta, k, dist)
	} else {
		body = fmt.Sprintf("BSDFShader %s() { return smooth_conductor_bsdf(%s, %s); }", sym, eta, k)
	}
	return finalizeClosure(t, id, sym, body)
}

// Plastic combines a diffuse substrate under a dielectric coating,
// aliased from roughplastic.
type Plastic struct{}

func (Plastic) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	diffuse, _ := t.AddColor("diffuse_reflectance", linear.V3{0.5, 0.5, 0.5}, shadingtree.Options{})
	ior, _ := t.AddNumber("ior", 1.5, shadingtree.Options{})
	dist, hasDist := setupRoughness(t, obj)
	sym := t.Symbol("bsdf")
	var body string
	if hasDist {
		body = fmt.Sprintf("BSDFShader %s() { return rough_plastic_bsdf(%s, %s, %s); }", sym, diffuse, ior, dist)
	} else {
		body = fmt.Sprintf("BSDFShader %s() { return smooth_plastic_bsdf(%s, %s); }", sym, diffuse, ior)
	}
	return finalizeClosure(t, id, sym, body)
}

// Phong is the classic specular-lobe BSDF, parameterized by exponent.
type Phong struct{}

func (Phong) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	specular, _ := t.AddColor("specular_reflectance", linear.V3{1, 1, 1}, shadingtree.Options{})
	exponent, _ := t.AddNumber("exponent", 30, shadingtree.Options{})
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return phong_bsdf(%s, %s); }", sym, specular, exponent)
	return finalizeClosure(t, id, sym, body)
}

// Principled is the Disney-style uber-shader BSDF.
type Principled struct{}

func (Principled) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	baseColor, _ := t.AddColor("base_color", linear.V3{0.8, 0.8, 0.8}, shadingtree.Options{})
	metallic, _ := t.AddNumber("metallic", 0, shadingtree.Options{})
	roughness, _ := t.AddNumber("roughness", 0.5, shadingtree.Options{})
	specular, _ := t.AddNumber("specular", 0.5, shadingtree.Options{})
	clearcoat, clearcoatOK := t.AddNumber("clearcoat", 0, shadingtree.Options{Zero: true})
	if !clearcoatOK {
		clearcoat = "0.0f"
	}
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf("BSDFShader %s() { return principled_bsdf(%s, %s, %s, %s, %s); }",
		sym, baseColor, metallic, roughness, specular, clearcoat)
	return finalizeClosure(t, id, sym, body)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
