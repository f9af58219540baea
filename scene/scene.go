// Package scene implements the declarative scene description that
// feeds the shading tree and plugin graphs: a flat, name-addressable
// arena of typed property bags (§3 of the renderer specification).
//
// The arena design mirrors the teacher's node.Graph: objects live in
// one growable slice indexed by an integer ID, rather than being
// linked by pointer or reference-counted, so a BSDF can name another
// BSDF by string without creating a reference cycle the garbage
// collector has to reason about.
package scene

import (
	"fmt"

	"github.com/embervale/photon/internal/bitm"
	"github.com/embervale/photon/linear"
)

// Type identifies the kind of a scene object.
type Type int

const (
	TShape Type = iota
	TTexture
	TBSDF
	TLight
	TMedium
	TEntity
	TCamera
	TTechnique
	TFilm
)

func (t Type) String() string {
	switch t {
	case TShape:
		return "shape"
	case TTexture:
		return "texture"
	case TBSDF:
		return "bsdf"
	case TLight:
		return "light"
	case TMedium:
		return "medium"
	case TEntity:
		return "entity"
	case TCamera:
		return "camera"
	case TTechnique:
		return "technique"
	case TFilm:
		return "film"
	default:
		return "unknown"
	}
}

// Kind identifies the dynamic type carried by a Property.
type Kind int

const (
	KBool Kind = iota
	KInt
	KFloat
	KString
	KVec2
	KVec3
	KMat3
	KTransform
	KRef
)

// Property is a single named value on a scene Object. Only the field
// matching Kind is meaningful; the invariant (§3) is that a property's
// Kind is fixed at parse time, and readers never silently coerce
// except the one documented broadcast (a bare number assigned to a
// "scale" property expands to a uniform Vec3).
type Property struct {
	Kind Kind
	B    bool
	I    int64
	F    float32
	S    string // also carries KRef's referenced name
	V2   linear.V2
	V3   linear.V3
	M3   linear.M3
	M4   linear.M4
}

// ID identifies an Object within a Scene. The zero value is invalid.
type ID int

// Object is a typed, named bag of properties.
type Object struct {
	ID    ID
	Name  string
	Type  Type
	Props map[string]Property
}

// Arena stores every Object in a Scene in one flat, integer-indexed
// slice, following node.Graph's bitm-backed slot allocation. The
// arena has no operation that frees an object, so every ID stays
// valid for the arena's lifetime.
type Arena struct {
	slots   bitm.Bitm[uint32]
	objects []*Object
	byName  map[string]ID
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{byName: make(map[string]ID)}
}

// Add inserts obj into the arena, assigning and returning its ID.
// obj.ID is set as a side effect. Returns an error if the name is
// already in use by another object.
func (a *Arena) Add(obj *Object) (ID, error) {
	if obj.Name != "" {
		if _, dup := a.byName[obj.Name]; dup {
			return 0, fmt.Errorf("scene: duplicate object name %q", obj.Name)
		}
	}
	idx, ok := a.slots.Search()
	if !ok {
		idx = a.slots.Grow(1)
	}
	a.slots.Set(idx)
	id := ID(idx + 1)
	obj.ID = id
	if idx < len(a.objects) {
		a.objects[idx] = obj
	} else {
		a.objects = append(a.objects, obj)
	}
	if obj.Name != "" {
		a.byName[obj.Name] = id
	}
	return id, nil
}

// Get dereferences id. It returns nil if id is invalid or was freed.
func (a *Arena) Get(id ID) *Object {
	idx := int(id) - 1
	if idx < 0 || idx >= len(a.objects) || !a.slots.IsSet(idx) {
		return nil
	}
	return a.objects[idx]
}

// ByName looks up an object by its scene-wide unique name.
func (a *Arena) ByName(name string) (*Object, bool) {
	id, ok := a.byName[name]
	if !ok {
		return nil, false
	}
	return a.Get(id), true
}

// ByType returns every live object of the given Type, in arena order.
// The runtime driver uses this to enumerate lights when building the
// LightHierarchy (§4.D) and entities when walking the scene for
// rendering setup.
func (a *Arena) ByType(t Type) []*Object {
	var out []*Object
	for i, obj := range a.objects {
		if obj != nil && a.slots.IsSet(i) && obj.Type == t {
			out = append(out, obj)
		}
	}
	return out
}

// Scene is a fully parsed scene description: the arena of all
// objects plus the well-known singletons (camera, technique, film).
type Scene struct {
	Arena     *Arena
	Camera    ID
	Technique ID
	Film      ID
}

// New creates an empty Scene with its own Arena.
func New() *Scene {
	return &Scene{Arena: NewArena()}
}

// Object validation helpers.

// GetBool returns the named bool property, or def if absent or of a
// different Kind.
func (o *Object) GetBool(name string, def bool) bool {
	p, ok := o.Props[name]
	if !ok || p.Kind != KBool {
		return def
	}
	return p.B
}

// GetNumber returns the named numeric property as float32, accepting
// both KFloat and KInt, or def if absent or of a different Kind.
func (o *Object) GetNumber(name string, def float32) float32 {
	p, ok := o.Props[name]
	if !ok {
		return def
	}
	switch p.Kind {
	case KFloat:
		return p.F
	case KInt:
		return float32(p.I)
	default:
		return def
	}
}

// GetInt returns the named integer property, accepting both KInt and
// KFloat (truncated), or def if absent or of a different Kind.
func (o *Object) GetInt(name string, def int64) int64 {
	p, ok := o.Props[name]
	if !ok {
		return def
	}
	switch p.Kind {
	case KInt:
		return p.I
	case KFloat:
		return int64(p.F)
	default:
		return def
	}
}

// GetString returns the named string property, or def if absent or
// of a different Kind.
func (o *Object) GetString(name string, def string) string {
	p, ok := o.Props[name]
	if !ok || (p.Kind != KString && p.Kind != KRef) {
		return def
	}
	return p.S
}

// GetRef returns the object name referenced by the named property
// (a bare string naming another scene object), or ok=false if the
// property is absent or not a reference.
func (o *Object) GetRef(name string) (ref string, ok bool) {
	p, present := o.Props[name]
	if !present || (p.Kind != KString && p.Kind != KRef) {
		return "", false
	}
	return p.S, true
}

// GetVec2 returns the named Vec2 property, or def if absent or of a
// different Kind.
func (o *Object) GetVec2(name string, def linear.V2) linear.V2 {
	p, ok := o.Props[name]
	if !ok || p.Kind != KVec2 {
		return def
	}
	return p.V2
}

// GetVec3 returns the named Vec3 property. For a property named
// "scale", a bare number is accepted and broadcast to (v,v,v) — the
// one documented numeric→vec3 promotion (§9). Any other Kind, or a
// bare number under any other name, falls back to def.
func (o *Object) GetVec3(name string, def linear.V3) linear.V3 {
	p, ok := o.Props[name]
	if !ok || (p.Kind != KVec3 && name != "scale") {
		return def
	}
	switch p.Kind {
	case KVec3:
		return p.V3
	case KFloat:
		return linear.V3{p.F, p.F, p.F}
	case KInt:
		v := float32(p.I)
		return linear.V3{v, v, v}
	default:
		return def
	}
}

// GetTransform returns the named Transform property as a column-major
// 4x4 matrix, or the identity matrix if absent or of a different Kind.
func (o *Object) GetTransform(name string) linear.M4 {
	p, ok := o.Props[name]
	if !ok || p.Kind != KTransform {
		var m linear.M4
		m.I()
		return m
	}
	return p.M4
}

// HasProperty reports whether name is present on o at all, regardless
// of Kind — used by plugins that need to distinguish "absent" from
// "present but zero" (e.g. the BSDF roughness helper, §4.D).
func (o *Object) HasProperty(name string) bool {
	_, ok := o.Props[name]
	return ok
}
