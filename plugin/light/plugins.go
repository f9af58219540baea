package light

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/shadingtree"
)

func luminance(c linear.V3) float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

// Point is an omnidirectional, positional light, grounded on the
// teacher's PointLight (Position/Range/Intensity/R,G,B fields).
type Point struct{}

func (Point) IsInfinite() bool { return false }
func (Point) IsDelta() bool    { return true }

func (Point) Position(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("position", linear.V3{}), true
}
func (Point) Direction(*scene.Object) (linear.V3, bool) { return linear.V3{}, false }

func (Point) ComputeFlux(obj *scene.Object) float32 {
	intensity := obj.GetNumber("intensity", 1.0)
	color := obj.GetVec3("color", linear.V3{1, 1, 1})
	return intensity * luminance(color) * 4 * math32.Pi
}

func (Point) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	pos, _ := t.AddVector("position", linear.V3{}, shadingtree.Options{})
	color, _ := t.AddColor("color", linear.V3{1, 1, 1}, shadingtree.Options{})
	intensity, _ := t.AddNumber("intensity", 1.0, shadingtree.Options{})
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return point_light(%s, %s, %s); }", sym, pos, color, intensity)
	return finalizeLight(t, id, sym, body)
}

// Spot is a positional light restricted to a cone, grounded on the
// teacher's SpotLight (adds InnerAngle/OuterAngle over PointLight).
type Spot struct{}

func (Spot) IsInfinite() bool { return false }
func (Spot) IsDelta() bool    { return true }

func (Spot) Position(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("position", linear.V3{}), true
}
func (Spot) Direction(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("direction", linear.V3{0, -1, 0}), true
}

func (Spot) ComputeFlux(obj *scene.Object) float32 {
	intensity := obj.GetNumber("intensity", 1.0)
	color := obj.GetVec3("color", linear.V3{1, 1, 1})
	outer := obj.GetNumber("outer_angle", 0.5)
	solidAngle := 2 * math32.Pi * (1 - math32.Cos(outer))
	return intensity * luminance(color) * solidAngle
}

func (Spot) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	pos, _ := t.AddVector("position", linear.V3{}, shadingtree.Options{})
	dir, _ := t.AddVector("direction", linear.V3{0, -1, 0}, shadingtree.Options{})
	color, _ := t.AddColor("color", linear.V3{1, 1, 1}, shadingtree.Options{})
	intensity, _ := t.AddNumber("intensity", 1.0, shadingtree.Options{})
	inner, _ := t.AddNumber("inner_angle", 0.4, shadingtree.Options{})
	outer, _ := t.AddNumber("outer_angle", 0.5, shadingtree.Options{})
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return spot_light(%s, %s, %s, %s, %s, %s); }",
		sym, pos, dir, color, intensity, inner, outer)
	return finalizeLight(t, id, sym, body)
}

// Directional is a distant, parallel-ray light with no position,
// aliased from `sun`, grounded on the teacher's SunLight.
type Directional struct{}

func (Directional) IsInfinite() bool { return true }
func (Directional) IsDelta() bool    { return true }

func (Directional) Position(*scene.Object) (linear.V3, bool) { return linear.V3{}, false }
func (Directional) Direction(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("direction", linear.V3{0, -1, 0}), true
}

func (Directional) ComputeFlux(obj *scene.Object) float32 {
	intensity := obj.GetNumber("intensity", 1.0)
	color := obj.GetVec3("color", linear.V3{1, 1, 1})
	return intensity * luminance(color)
}

func (Directional) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	dir, _ := t.AddVector("direction", linear.V3{0, -1, 0}, shadingtree.Options{})
	color, _ := t.AddColor("color", linear.V3{1, 1, 1}, shadingtree.Options{})
	intensity, _ := t.AddNumber("intensity", 1.0, shadingtree.Options{})
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return directional_light(%s, %s, %s); }", sym, dir, color, intensity)
	return finalizeLight(t, id, sym, body)
}

// Area is a finite emitting surface attached to a shape entity
// (position is the entity's centroid; no direct teacher analogue —
// the teacher's engine has no area-light concept, so this generalizes
// PointLight's shape to a surface-integrated flux per spec §4.D).
type Area struct{}

func (Area) IsInfinite() bool { return false }
func (Area) IsDelta() bool    { return false }

func (Area) Position(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("position", linear.V3{}), true
}
func (Area) Direction(obj *scene.Object) (linear.V3, bool) {
	return obj.GetVec3("normal", linear.V3{0, 1, 0}), true
}

func (Area) ComputeFlux(obj *scene.Object) float32 {
	radiance := obj.GetNumber("radiance", 1.0)
	color := obj.GetVec3("color", linear.V3{1, 1, 1})
	area := obj.GetNumber("area", 1.0)
	return radiance * luminance(color) * area * math32.Pi
}

func (Area) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	pos, _ := t.AddVector("position", linear.V3{}, shadingtree.Options{})
	normal, _ := t.AddVector("normal", linear.V3{0, 1, 0}, shadingtree.Options{})
	color, _ := t.AddColor("color", linear.V3{1, 1, 1}, shadingtree.Options{})
	radiance, _ := t.AddNumber("radiance", 1.0, shadingtree.Options{})
	twoSided, _ := t.AddComputedInteger("two_sided", boolToInt(obj.GetBool("two_sided", false)), shadingtree.Options{})
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return area_light(%s, %s, %s, %s, %s); }",
		sym, pos, normal, color, radiance, twoSided)
	return finalizeLight(t, id, sym, body)
}

// Envmap is an infinite environment light sourced from a texture (or
// a constant color when none is given), aliased from constant/infinite.
type Envmap struct{}

func (Envmap) IsInfinite() bool { return true }
func (Envmap) IsDelta() bool    { return false }

func (Envmap) Position(*scene.Object) (linear.V3, bool)  { return linear.V3{}, false }
func (Envmap) Direction(*scene.Object) (linear.V3, bool) { return linear.V3{}, false }

func (Envmap) ComputeFlux(obj *scene.Object) float32 {
	color := obj.GetVec3("radiance", linear.V3{1, 1, 1})
	return luminance(color)
}

func (Envmap) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	radiance, _ := t.AddTexture("radiance", linear.V3{1, 1, 1}, shadingtree.Options{})
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return envmap_light(%s); }", sym, radiance)
	return finalizeLight(t, id, sym, body)
}

// unknown substitutes for an unrecognized light type, matching the
// bsdf package's Error stub: it degrades rendering instead of
// aborting the build (§4.G).
type unknown struct{ reason string }

func (unknown) IsInfinite() bool                         { return false }
func (unknown) IsDelta() bool                             { return true }
func (unknown) Position(*scene.Object) (linear.V3, bool)  { return linear.V3{}, true }
func (unknown) Direction(*scene.Object) (linear.V3, bool) { return linear.V3{}, false }
func (unknown) ComputeFlux(*scene.Object) float32         { return 0 }

func (u unknown) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	id := t.BeginClosure(obj)
	sym := t.Symbol("light")
	body := fmt.Sprintf("LightShader %s() { return null_light(); }", sym)
	t.Warn("light", obj.Name, "%s", u.reason)
	return finalizeLight(t, id, sym, body)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}


func finalizeLight(t *shadingtree.Tree, id int, function, body string) (int, error) {
	for _, h := range t.PullHeader() {
		t.Emit("%s\n", h)
	}
	if _, isNew := t.MemoizeGroup(body, function); isNew {
		t.Emit("%s\n", body)
	}
	return id, t.EndClosure()
}
