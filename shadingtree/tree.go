// Package shadingtree implements the context-threaded code-generation
// environment that plugins (BSDFs, textures, lights, techniques) use
// to turn scene-object properties into shader source text.
//
// The design follows the teacher's engine/internal/ctxt package: a
// small stack-shaped context object threaded through a recursive
// generation pass, mangling emitted identifiers with a monotone
// counter so nested invocations never collide. Where ctxt tracked
// descriptor-set bindings, Tree tracks closures, pulled headers and a
// parameter registry instead.
package shadingtree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/scene"
)

const prefix = "shadingtree: "

func newTreeErr(reason string) error { return errors.New(prefix + reason) }

// Resolver generates the code for a named dependency (a Texture or
// BSDF scene object referenced from another object's property) on
// demand. The plugin packages implement Resolver so that shadingtree
// itself never needs to know about the plugin registries.
type Resolver interface {
	ResolveTexture(t *Tree, obj *scene.Object) (closureID int, err error)
	ResolveBSDF(t *Tree, obj *scene.Object) (closureID int, err error)
}

type closure struct {
	id         int
	obj        *scene.Object
	locals     map[string]string // property name -> resolved inline expression
	header     []string
	headerSeen map[string]bool
}

// Tree is one code-generation pass over a Scene. It is not safe for
// concurrent use: generation is single-threaded (§5).
type Tree struct {
	sc       *scene.Scene
	global   *Registry
	resolver Resolver
	warn     *warn.Tracker

	stack  []*closure
	nextID int

	// forceDynamic, when set, makes every Add* call behave as though
	// Options.Dynamic were true, routing every resolvable property
	// through a registry lookup instead of baking a literal (spec §3's
	// RuntimeOptions "specialization-force flag", used to verify that
	// setParameter reaches every parameter a scene exposes).
	forceDynamic bool

	// objectClosureIDs lets getClosureID find a sibling's emitted
	// symbol when two properties reference the same named object.
	objectClosureIDs map[string]int

	groups map[string]string // sha256(source\x00function) -> group ID

	stream strings.Builder
}

// New creates a Tree over sc, using global as the parameter registry
// and warnTracker to report one-shot diagnostics. The stack starts
// with a root closure (ID 0) holding scene-global parameters, per the
// invariant that currentClosureID is always valid.
func New(sc *scene.Scene, global *Registry, warnTracker *warn.Tracker) *Tree {
	t := &Tree{
		sc:               sc,
		global:           global,
		warn:             warnTracker,
		objectClosureIDs: make(map[string]int),
		groups:           make(map[string]string),
	}
	root := &closure{id: 0, locals: map[string]string{}, headerSeen: map[string]bool{}}
	t.stack = append(t.stack, root)
	return t
}

// SetResolver installs the dependency resolver used by AddTexture,
// the reference path of AddColor, and ResolveBSDFRef.
func (t *Tree) SetResolver(r Resolver) { t.resolver = r }

// SetForceDynamic turns on or off forced specialization: while set,
// every subsequent Add* call behaves as though its Options.Dynamic
// were true.
func (t *Tree) SetForceDynamic(force bool) { t.forceDynamic = force }

// Scene returns the scene this tree is generating code for, letting
// plugins look up sibling objects by name directly (e.g. combinator
// BSDFs resolving a reference that isn't a plain color/texture slot).
func (t *Tree) Scene() *scene.Scene { return t.sc }

// Warn reports a one-shot diagnostic tagged by source and key. A nil
// tracker (no warning sink installed) makes this a no-op.
func (t *Tree) Warn(source, key, format string, args ...any) {
	if t.warn != nil {
		t.warn.Once(source, key, format, args...)
	}
}

// BeginClosure opens a new closure scoped to obj and returns its
// unique ID. Every BeginClosure must be matched by exactly one
// EndClosure (§4.C invariant 1).
func (t *Tree) BeginClosure(obj *scene.Object) int {
	t.nextID++
	id := t.nextID
	c := &closure{id: id, obj: obj, locals: map[string]string{}, headerSeen: map[string]bool{}}
	t.stack = append(t.stack, c)
	if obj != nil && obj.Name != "" {
		t.objectClosureIDs[obj.Name] = id
	}
	return id
}

// EndClosure closes the most recently opened closure. Calling it on
// an empty stack (only the root closure remains) is a balanced-closure
// violation — a bug in the calling plugin, not a recoverable scene
// error (§4.G) — and is reported as an error so callers can fail loud
// instead of corrupting the stack.
func (t *Tree) EndClosure() error {
	if len(t.stack) <= 1 {
		return newTreeErr("EndClosure called with no open closure")
	}
	t.stack = t.stack[:len(t.stack)-1]
	return nil
}

func (t *Tree) top() *closure { return t.stack[len(t.stack)-1] }

// CurrentClosureID returns the ID of the innermost open closure, used
// to mangle emitted identifiers (bsdf_{id}, md_{id}) so nested plugins
// never collide.
func (t *Tree) CurrentClosureID() int { return t.top().id }

// Symbol mangles prefix with the current closure ID, e.g.
// Symbol("bsdf") -> "bsdf_3".
func (t *Tree) Symbol(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, t.CurrentClosureID())
}

// GetClosureID resolves the closure ID assigned when the named scene
// object was generated, so a sibling property can reference its
// emitted symbol. ok is false if that object has not been generated
// yet in this pass.
func (t *Tree) GetClosureID(name string) (id int, ok bool) {
	id, ok = t.objectClosureIDs[name]
	return
}

// PullHeader returns the accumulated header lines for the current
// closure and clears them.
func (t *Tree) PullHeader() []string {
	c := t.top()
	h := c.header
	c.header = nil
	c.headerSeen = map[string]bool{}
	return h
}

// GetInline returns the resolved expression for name within the
// current closure, as produced by a previous addX call.
func (t *Tree) GetInline(name string) (string, bool) {
	v, ok := t.top().locals[name]
	return v, ok
}

func (c *closure) addHeader(line string) {
	if c.headerSeen[line] {
		return
	}
	c.headerSeen[line] = true
	c.header = append(c.header, line)
}

// Emit appends raw generated source to the program stream, in DFS
// emission order (a child dependency's code is always fully emitted
// before its parent's).
func (t *Tree) Emit(format string, args ...any) {
	fmt.Fprintf(&t.stream, format, args...)
}

// Program returns the full accumulated generated source.
func (t *Tree) Program() string { return t.stream.String() }

// registryKey mangles a property name against the object that owns
// it, so two different objects' same-named property never collide in
// the global registry.
func (c *closure) registryKey(name string) string {
	if c.obj != nil && c.obj.Name != "" {
		return c.obj.Name + "." + name
	}
	return fmt.Sprintf("closure%d.%s", c.id, name)
}

// AddNumber resolves a float property (§4.C). It returns the inline
// expression to splice into emitted code, and ok=false when Options.Zero
// caused the property to be skipped entirely.
func (t *Tree) AddNumber(name string, def float32, opts Options) (expr string, ok bool) {
	c := t.top()
	val := def
	if c.obj != nil {
		if p, present := c.obj.Props[name]; present {
			switch p.Kind {
			case scene.KFloat:
				val = p.F
			case scene.KInt:
				val = float32(p.I)
			default:
				if t.warn != nil {
					t.warn.Once("shadingtree", name, "property %q is not numeric, using default", name)
				}
			}
		}
	}

	if opts.Zero && val == 0 && !opts.Dynamic && !t.forceDynamic {
		return "", false
	}

	if opts.MakeGlobal {
		t.global.Set(c.registryKey(name), FloatValue(val))
	}

	if opts.Dynamic || opts.MakeGlobal || t.forceDynamic {
		key := c.registryKey(name)
		sym := fmt.Sprintf("%s_%s", sanitize(name), t.Symbol(""))
		c.addHeader(fmt.Sprintf("float %s = get_global_parameter_f32(%q, %s);", sym, key, formatFloat(val)))
		c.locals[name] = sym
		return sym, true
	}

	lit := formatFloat(val)
	c.locals[name] = lit
	return lit, true
}

// AddInteger is the integer counterpart of AddNumber.
func (t *Tree) AddInteger(name string, def int64, opts Options) (expr string, ok bool) {
	c := t.top()
	val := def
	if c.obj != nil {
		if p, present := c.obj.Props[name]; present {
			switch p.Kind {
			case scene.KInt:
				val = p.I
			case scene.KFloat:
				val = int64(p.F)
			default:
				if t.warn != nil {
					t.warn.Once("shadingtree", name, "property %q is not integral, using default", name)
				}
			}
		}
	}

	if opts.Zero && val == 0 && !opts.Dynamic && !t.forceDynamic {
		return "", false
	}
	if opts.MakeGlobal {
		t.global.Set(c.registryKey(name), IntValue(val))
	}
	if opts.Dynamic || opts.MakeGlobal || t.forceDynamic {
		key := c.registryKey(name)
		sym := fmt.Sprintf("%s_%s", sanitize(name), t.Symbol(""))
		c.addHeader(fmt.Sprintf("int %s = get_global_parameter_i32(%q, %d);", sym, key, val))
		c.locals[name] = sym
		return sym, true
	}
	lit := fmt.Sprintf("%d", val)
	c.locals[name] = lit
	return lit, true
}

// AddComputedFloat adds a parameter with no backing scene-object
// property — a technique supplies the value directly rather than
// reading it off obj.
func (t *Tree) AddComputedFloat(name string, def float32, opts Options) (expr string, ok bool) {
	c := t.top()
	if opts.Zero && def == 0 && !opts.Dynamic && !t.forceDynamic {
		return "", false
	}
	if opts.MakeGlobal {
		t.global.Set(c.registryKey(name), FloatValue(def))
	}
	if opts.Dynamic || opts.MakeGlobal || t.forceDynamic {
		key := c.registryKey(name)
		sym := fmt.Sprintf("%s_%s", sanitize(name), t.Symbol(""))
		c.addHeader(fmt.Sprintf("float %s = get_global_parameter_f32(%q, %s);", sym, key, formatFloat(def)))
		c.locals[name] = sym
		return sym, true
	}
	lit := formatFloat(def)
	c.locals[name] = lit
	return lit, true
}

// AddComputedInteger is the integer counterpart of AddComputedFloat.
func (t *Tree) AddComputedInteger(name string, def int64, opts Options) (expr string, ok bool) {
	c := t.top()
	if opts.Zero && def == 0 && !opts.Dynamic && !t.forceDynamic {
		return "", false
	}
	if opts.MakeGlobal {
		t.global.Set(c.registryKey(name), IntValue(def))
	}
	if opts.Dynamic || opts.MakeGlobal || t.forceDynamic {
		key := c.registryKey(name)
		sym := fmt.Sprintf("%s_%s", sanitize(name), t.Symbol(""))
		c.addHeader(fmt.Sprintf("int %s = get_global_parameter_i32(%q, %d);", sym, key, def))
		c.locals[name] = sym
		return sym, true
	}
	lit := fmt.Sprintf("%d", def)
	c.locals[name] = lit
	return lit, true
}

// AddVector resolves a vec3 (direction/position) property.
func (t *Tree) AddVector(name string, def linear.V3, opts Options) (expr string, ok bool) {
	return t.addVec3(name, def, opts, "get_global_parameter_vec3")
}

// AddColor resolves a vec3 color property. A color may also be a
// string naming a Texture or BSDF; in that case the dependency is
// recursively generated via the Resolver and the inline expression
// becomes a call into its emitted symbol.
func (t *Tree) AddColor(name string, def linear.V3, opts Options) (expr string, ok bool) {
	c := t.top()
	if c.obj != nil {
		if ref, isRef := c.obj.GetRef(name); isRef && t.resolver != nil {
			if dep, depObj, found := t.lookupDependency(ref); found {
				depID, err := t.generateDependency(dep, depObj)
				if err != nil {
					if t.warn != nil {
						t.warn.Once("shadingtree", ref, "failed to generate dependency %q: %v", ref, err)
					}
					lit := formatColorLiteral(def)
					c.locals[name] = lit
					return lit, true
				}
				sym := fmt.Sprintf("eval_%d()", depID)
				c.locals[name] = sym
				return sym, true
			}
			if t.warn != nil {
				t.warn.Once("shadingtree", ref, "property %q references unknown object %q, using default", name, ref)
			}
		}
	}
	return t.addVec3(name, def, opts, "get_global_parameter_vec3")
}

type dependencyKind int

const (
	depTexture dependencyKind = iota
	depBSDF
)

func (t *Tree) lookupDependency(name string) (dependencyKind, *scene.Object, bool) {
	if t.sc == nil {
		return 0, nil, false
	}
	obj, ok := t.sc.Arena.ByName(name)
	if !ok {
		return 0, nil, false
	}
	switch obj.Type {
	case scene.TTexture:
		return depTexture, obj, true
	case scene.TBSDF:
		return depBSDF, obj, true
	default:
		return 0, nil, false
	}
}

func (t *Tree) generateDependency(kind dependencyKind, obj *scene.Object) (int, error) {
	if existing, ok := t.GetClosureID(obj.Name); ok {
		return existing, nil
	}
	switch kind {
	case depTexture:
		return t.resolver.ResolveTexture(t, obj)
	case depBSDF:
		return t.resolver.ResolveBSDF(t, obj)
	default:
		return 0, newTreeErr("unknown dependency kind")
	}
}

// ResolveBSDFRef recursively generates the BSDF named by ref through
// the installed Resolver and returns both its closure ID and an
// `eval_<id>()` call expression. Combinator BSDFs (blend/add/mask/
// cutoff and the wrap plugins) use this to pull in sub-BSDFs named by
// a scene property instead of a literal value.
func (t *Tree) ResolveBSDFRef(ref string) (expr string, closureID int, err error) {
	if t.resolver == nil {
		return "", 0, newTreeErr("no resolver installed")
	}
	dep, depObj, found := t.lookupDependency(ref)
	if !found || dep != depBSDF {
		return "", 0, newTreeErr(fmt.Sprintf("unknown BSDF reference %q", ref))
	}
	id, err := t.generateDependency(dep, depObj)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("eval_%d()", id), id, nil
}

// AddTexture resolves a texture-valued property: either an inline
// color/number literal used as a constant texture, or a named Texture
// object recursively generated through the Resolver.
func (t *Tree) AddTexture(name string, def linear.V3, opts Options) (expr string, ok bool) {
	c := t.top()
	if c.obj != nil {
		if ref, isRef := c.obj.GetRef(name); isRef {
			if t.resolver == nil {
				return formatColorLiteral(def), true
			}
			if dep, depObj, found := t.lookupDependency(ref); found {
				depID, err := t.generateDependency(dep, depObj)
				if err == nil {
					sym := fmt.Sprintf("eval_%d()", depID)
					c.locals[name] = sym
					return sym, true
				}
				if t.warn != nil {
					t.warn.Once("shadingtree", ref, "failed to generate texture %q: %v", ref, err)
				}
			} else if t.warn != nil {
				t.warn.Once("shadingtree", ref, "texture property %q references unknown object %q", name, ref)
			}
		}
	}
	return t.addVec3(name, def, opts, "get_global_parameter_vec3")
}

func (t *Tree) addVec3(name string, def linear.V3, opts Options, lookupFn string) (expr string, ok bool) {
	c := t.top()
	val := def
	if c.obj != nil {
		if _, present := c.obj.Props[name]; present {
			val = c.obj.GetVec3(name, def)
		}
	}

	isZero := val[0] == 0 && val[1] == 0 && val[2] == 0
	if opts.Zero && isZero && !opts.Dynamic && !t.forceDynamic {
		return "", false
	}
	if opts.MakeGlobal {
		t.global.Set(c.registryKey(name), Vec3Value(val))
	}
	if opts.Dynamic || opts.MakeGlobal || t.forceDynamic {
		key := c.registryKey(name)
		sym := fmt.Sprintf("%s_%s", sanitize(name), t.Symbol(""))
		c.addHeader(fmt.Sprintf("vec3 %s = %s(%q, %s, %s, %s);", sym, lookupFn, key,
			formatFloat(val[0]), formatFloat(val[1]), formatFloat(val[2])))
		c.locals[name] = sym
		return sym, true
	}
	lit := formatColorLiteral(val)
	c.locals[name] = lit
	return lit, true
}

// MemoizeGroup registers the (source, function) pair under a content
// hash and returns the shared group ID. isNew is false when an
// identical pair was already registered, signaling the caller that it
// may skip re-emitting the body (the JIT reuses the earlier compile).
func (t *Tree) MemoizeGroup(source, function string) (groupID string, isNew bool) {
	sum := sha256.Sum256([]byte(source + "\x00" + function))
	hash := hex.EncodeToString(sum[:])
	if existing, ok := t.groups[hash]; ok {
		return existing, false
	}
	t.groups[hash] = hash
	return hash, true
}

func formatFloat(v float32) string {
	return fmt.Sprintf("%gf", v)
}

func formatColorLiteral(v linear.V3) string {
	return fmt.Sprintf("vec3(%s, %s, %s)", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
