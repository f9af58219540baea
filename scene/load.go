package scene

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/linear"
)

const prefix = "scene: "

func newLoadErr(reason string) error { return errors.New(prefix + reason) }

// docWarn is a once-per-cause warning tracker for load-time
// diagnostics, mirroring the teacher's device-capability "warn once,
// keep going" discipline. Load reports nothing to it: an unrecognized
// property value is a load error, not a warning.
var docWarn warn.Tracker

// namedObject is the on-wire shape of every entry in the textures,
// bsdfs, shapes, entities and lights arrays.
type namedObject struct {
	Name  string                     `json:"name"`
	Type  string                     `json:"type"`
	Props map[string]json.RawMessage `json:"-"`
}

// document mirrors the top-level JSON object (§6): camera, technique
// and film are anonymous singletons; the rest are named arrays.
type document struct {
	Camera    map[string]json.RawMessage   `json:"camera"`
	Technique map[string]json.RawMessage   `json:"technique"`
	Film      map[string]json.RawMessage   `json:"film"`
	Textures  []map[string]json.RawMessage `json:"textures"`
	BSDFs     []map[string]json.RawMessage `json:"bsdfs"`
	Shapes    []map[string]json.RawMessage `json:"shapes"`
	Entities  []map[string]json.RawMessage `json:"entities"`
	Lights    []map[string]json.RawMessage `json:"lights"`
}

// Load parses a scene description from raw JSON bytes.
func Load(data []byte) (*Scene, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, prefix+"decode")
	}

	sc := New()

	add := func(typ Type, raw map[string]json.RawMessage, synthName string) (ID, error) {
		if raw == nil {
			return 0, nil
		}
		obj, err := decodeObject(typ, raw, synthName)
		if err != nil {
			return 0, err
		}
		return sc.Arena.Add(obj)
	}

	var err error
	if sc.Camera, err = add(TCamera, doc.Camera, "__camera__"); err != nil {
		return nil, err
	}
	if sc.Technique, err = add(TTechnique, doc.Technique, "__technique__"); err != nil {
		return nil, err
	}
	if sc.Film, err = add(TFilm, doc.Film, "__film__"); err != nil {
		return nil, err
	}

	groups := []struct {
		typ  Type
		objs []map[string]json.RawMessage
	}{
		{TTexture, doc.Textures},
		{TBSDF, doc.BSDFs},
		{TShape, doc.Shapes},
		{TEntity, doc.Entities},
		{TLight, doc.Lights},
	}
	for _, g := range groups {
		for i, raw := range g.objs {
			obj, err := decodeObject(g.typ, raw, "")
			if err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", g.typ, i)
			}
			if obj.Name == "" {
				return nil, newLoadErr(fmt.Sprintf("%s[%d]: missing name", g.typ, i))
			}
			if _, err := sc.Arena.Add(obj); err != nil {
				return nil, err
			}
		}
	}
	return sc, nil
}

// LoadString is a convenience wrapper around Load for string input.
func LoadString(s string) (*Scene, error) { return Load([]byte(s)) }

func decodeObject(typ Type, raw map[string]json.RawMessage, synthName string) (*Object, error) {
	obj := &Object{Type: typ, Props: make(map[string]Property, len(raw))}

	if nameRaw, ok := raw["name"]; ok {
		if err := json.Unmarshal(nameRaw, &obj.Name); err != nil {
			return nil, errors.Wrap(err, prefix+"name")
		}
	} else {
		obj.Name = synthName
	}

	for key, val := range raw {
		if key == "name" || key == "type" {
			continue
		}
		p, err := decodeProperty(val)
		if err != nil {
			return nil, errors.Wrapf(err, prefix+"property %q", key)
		}
		obj.Props[key] = p
	}
	return obj, nil
}

func decodeProperty(raw json.RawMessage) (Property, error) {
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return Property{Kind: KBool, B: asBool}, nil
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		if float64(int64(asFloat)) == asFloat {
			return Property{Kind: KInt, I: int64(asFloat)}, nil
		}
		return Property{Kind: KFloat, F: float32(asFloat)}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return Property{Kind: KString, S: asString}, nil
	}

	var asArray []float32
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return decodeArrayProperty(asArray)
	}

	var asObj transformDoc
	if err := json.Unmarshal(raw, &asObj); err == nil && asObj.hasAny() {
		return decodeTransformProperty(asObj)
	}

	return Property{}, newLoadErr("unrecognized property value")
}

func decodeArrayProperty(v []float32) (Property, error) {
	switch len(v) {
	case 2:
		return Property{Kind: KVec2, V2: linear.V2{v[0], v[1]}}, nil
	case 3:
		return Property{Kind: KVec3, V3: linear.V3{v[0], v[1], v[2]}}, nil
	case 9:
		var m linear.M3
		for c := 0; c < 3; c++ {
			for r := 0; r < 3; r++ {
				m[c][r] = v[c*3+r]
			}
		}
		return Property{Kind: KMat3, M3: m}, nil
	case 16:
		var m linear.M4
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				m[c][r] = v[c*4+r]
			}
		}
		return Property{Kind: KTransform, M4: m}, nil
	default:
		return Property{}, newLoadErr(fmt.Sprintf("unsupported float array length %d", len(v)))
	}
}

// transformDoc is the nested-object form of a transform property:
// {"position":[..], "scale":[..]|number, "rotation":[x,y,z,w], "matrix":[16 floats]}.
type transformDoc struct {
	Position *[3]float32 `json:"position"`
	Scale    *rawScale   `json:"scale"`
	Rotation *[4]float32 `json:"rotation"`
	Matrix   *[16]float32 `json:"matrix"`
}

// rawScale accepts either a bare number (uniform scale) or a 3-vector.
type rawScale struct {
	uniform *float32
	vec     *[3]float32
}

func (s *rawScale) UnmarshalJSON(b []byte) error {
	var f float32
	if err := json.Unmarshal(b, &f); err == nil {
		s.uniform = &f
		return nil
	}
	var v [3]float32
	if err := json.Unmarshal(b, &v); err == nil {
		s.vec = &v
		return nil
	}
	return newLoadErr("scale must be a number or a 3-element array")
}

func (t transformDoc) hasAny() bool {
	return t.Position != nil || t.Scale != nil || t.Rotation != nil || t.Matrix != nil
}

func decodeTransformProperty(t transformDoc) (Property, error) {
	if t.Matrix != nil {
		var m linear.M4
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				m[c][r] = t.Matrix[c*4+r]
			}
		}
		return Property{Kind: KTransform, M4: m}, nil
	}

	pos := linear.V3{0, 0, 0}
	if t.Position != nil {
		pos = linear.V3(*t.Position)
	}
	scale := linear.V3{1, 1, 1}
	switch {
	case t.Scale == nil:
	case t.Scale.uniform != nil:
		scale = linear.V3{*t.Scale.uniform, *t.Scale.uniform, *t.Scale.uniform}
	case t.Scale.vec != nil:
		scale = linear.V3(*t.Scale.vec)
	}
	rot := linear.Q{R: 1}
	if t.Rotation != nil {
		rot = linear.Q{V: linear.V3{t.Rotation[0], t.Rotation[1], t.Rotation[2]}, R: t.Rotation[3]}
	}

	m := linear.M4FromTRS(&pos, &rot, &scale)
	return Property{Kind: KTransform, M4: m}, nil
}
