// Package runtime implements the Runtime Driver (§4.E): the single
// per-process orchestrator that loads a scene, generates its shader
// program through the shading tree and plugin graphs, hands the
// result to an external jit.Compiler, and drives the compiled kernels
// through per-iteration variant dispatch.
//
// The lifecycle (init/free, single global instance) is grounded on
// the teacher's engine/engine.go Config/DefaultConfig/Configure
// pattern and engine/renderer.go's Onscreen/Offscreen init/free split,
// generalized from a GPU-resident rasterizer to a JIT-driven ray
// tracer. engine/internal/ctxt's package-level drv/gpu singleton is
// the direct precedent for the single-instance guard below, inverted
// to fail loudly on a second construction instead of silently reusing
// the existing one (spec §5, §8 invariant 8).
package runtime

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/jit"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/plugin/bsdf"
	"github.com/embervale/photon/plugin/light"
	"github.com/embervale/photon/plugin/technique"
	"github.com/embervale/photon/plugin/texture"
	"github.com/embervale/photon/rescache"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/serial"
	"github.com/embervale/photon/shadingtree"
)

const prefix = "runtime: "

func newRuntimeErr(reason string) error { return errors.New(prefix + reason) }

var (
	instanceMu sync.Mutex
	instance   *Runtime
)

// variantProgram is the compiled program plus the three entry-point
// names a single technique variant may expose.
type variantProgram struct {
	program    jit.Program
	rayGenName string
	beforeName string
	afterName  string
}

// Runtime is the orchestrator described by spec §4.E. Only one
// instance may be live per process at a time (spec §5, §8 invariant
// 8), because the external JIT compiler it drives keeps process-wide
// state.
type Runtime struct {
	opts     RuntimeOptions
	compiler jit.Compiler

	sc       *scene.Scene
	global   *shadingtree.Registry
	warner   *warn.Tracker
	cache    *rescache.Cache
	bsdfs    *bsdf.Registry
	lights   *light.Registry
	textures *texture.Registry
	techs    *technique.Registry

	techPlugin technique.Plugin
	techObj    *scene.Object
	techInfo   technique.TechniqueInfo

	lightHierarchy *light.Hierarchy

	programs []variantProgram // indexed by variant

	mainFB    *Framebuffer
	lockedFBs map[int]*Framebuffer

	iteration int

	denoiser Denoiser

	closed bool
}

// New constructs the single live Runtime for this process, using
// compiler to JIT-compile every generated program. A second call
// before the first Runtime's Close fails explicitly (spec §5, §7.7,
// §8 invariant 8).
func New(opts RuntimeOptions, compiler jit.Compiler) (*Runtime, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return nil, newRuntimeErr("a runtime instance is already live in this process")
	}
	if compiler == nil {
		return nil, newRuntimeErr("no jit.Compiler provided")
	}
	r := &Runtime{
		opts:      opts,
		compiler:  compiler,
		global:    shadingtree.NewRegistry(),
		warner:    &warn.Tracker{},
		cache:     rescache.New(opts.CacheDir),
		bsdfs:     bsdf.NewRegistry(),
		lights:    light.NewRegistry(),
		textures:  texture.NewRegistry(),
		techs:     technique.NewRegistry(),
		lockedFBs: make(map[int]*Framebuffer),
		denoiser:  passthroughDenoiser{},
	}
	r.bsdfs.Configure(r.cache, r.warner)
	r.textures.Configure(r.cache)
	instance = r
	return r, nil
}

// SetDenoiser installs a real Denoiser backend. Without a call to
// this, Runtime uses a no-op passthrough (spec §1 treats the denoiser
// itself as an out-of-scope collaborator).
func (r *Runtime) SetDenoiser(d Denoiser) {
	if d == nil {
		d = passthroughDenoiser{}
	}
	r.denoiser = d
}

// Close releases the compiler and every compiled program, and frees
// the process-wide single-instance slot.
func (r *Runtime) Close() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, p := range r.programs {
		if p.program != nil {
			p.program.Destroy()
		}
	}
	err := r.compiler.Close()
	if instance == r {
		instance = nil
	}
	return err
}

// LoadFromFile reads a scene JSON file and loads it (§4.E
// "loadFromFile(path)").
func (r *Runtime) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "runtime: reading scene file")
	}
	if r.opts.ScriptDir == "" {
		r.opts.ScriptDir = filepath.Dir(path)
	}
	return r.LoadFromString(string(data), r.opts.ScriptDir)
}

// LoadFromString parses scene JSON from src. dir is recorded as the
// script directory for resolving relative filename properties (spec
// §4.E "loadFromString(src, dir)").
func (r *Runtime) LoadFromString(src, dir string) error {
	sc, err := scene.LoadString(src)
	if err != nil {
		return errors.Wrap(err, "runtime: parsing scene")
	}
	r.opts.ScriptDir = dir
	return r.LoadFromScene(sc)
}

// LoadFromScene generates and compiles the program for an
// already-parsed Scene (spec §4.E "loadFromScene(scene)").
func (r *Runtime) LoadFromScene(sc *scene.Scene) error {
	r.sc = sc

	techObj := sc.Arena.Get(sc.Technique)
	if techObj == nil {
		return newRuntimeErr("scene has no technique object")
	}
	r.techObj = techObj
	r.techPlugin = r.techs.Create(techObj)
	r.techInfo = r.techPlugin.Info(techObj)
	if len(r.techInfo.Variants) == 0 {
		return newRuntimeErr("technique declared zero variants")
	}

	width, height := r.filmSize()
	r.mainFB = NewFramebuffer(width, height)
	for _, aov := range r.techInfo.EnabledAOVs {
		r.mainFB.EnsureAOV(aov)
	}
	for _, aov := range r.opts.EnableAOVs {
		r.mainFB.EnsureAOV(aov)
	}

	tree := shadingtree.New(sc, r.global, r.warner)
	tree.SetResolver(resolver{bsdfs: r.bsdfs, textures: r.textures})
	tree.SetForceDynamic(r.opts.ForceSpecialization)

	r.generateCamera(tree)
	if err := r.generateLights(tree); err != nil {
		return errors.Wrap(err, "runtime: generating lights")
	}

	r.programs = make([]variantProgram, len(r.techInfo.Variants))
	for v := range r.techInfo.Variants {
		if err := r.generateVariant(tree, v); err != nil {
			return errors.Wrapf(err, "runtime: generating variant %d", v)
		}
	}

	source := tree.Program()
	if r.opts.DumpShaderSource {
		fmt.Fprintln(os.Stdout, source)
	}

	var entries []jit.EntryPoint
	for _, p := range r.programs {
		if p.rayGenName != "" {
			entries = append(entries, jit.EntryPoint{Name: p.rayGenName, Role: jit.RoleRayGen})
		}
		if p.beforeName != "" {
			entries = append(entries, jit.EntryPoint{Name: p.beforeName, Role: jit.RoleCallback})
		}
		if p.afterName != "" {
			entries = append(entries, jit.EntryPoint{Name: p.afterName, Role: jit.RoleCallback})
		}
	}
	groupID, _ := tree.MemoizeGroup(source, "__scene__")
	program, err := r.compiler.Compile(groupID, source, entries)
	if err != nil {
		return errors.Wrap(err, "runtime: JIT compile failed")
	}
	for i := range r.programs {
		r.programs[i].program = program
	}
	return nil
}

func (r *Runtime) filmSize() (int, int) {
	if r.sc == nil {
		return 1, 1
	}
	film := r.sc.Arena.Get(r.sc.Film)
	if film == nil {
		return 1, 1
	}
	size := film.GetVec2("size", linear.V2{1, 1})
	w, h := int(size[0]), int(size[1])
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

// generateCamera emits a minimal pinhole ray-generation function from
// the scene's camera object. Per §4.D this is the Camera plugin
// graph's job; a technique whose variant sets RequiresExplicitCamera
// (LightTracer) instead overrides it via its BeforeIteration hook
// (override_camera_generator(...)), executed entirely inside the
// generated shader text the compiled kernel runs — the Go driver
// never branches on RequiresExplicitCamera itself.
func (r *Runtime) generateCamera(t *shadingtree.Tree) {
	cameraObj := r.sc.Arena.Get(r.sc.Camera)
	t.BeginClosure(cameraObj)
	eye, _ := t.AddVector("eye", linear.V3{0, 0, 0}, shadingtree.Options{})
	dir, _ := t.AddVector("direction", linear.V3{0, 0, -1}, shadingtree.Options{})
	up, _ := t.AddVector("up", linear.V3{0, 1, 0}, shadingtree.Options{})
	fov, _ := t.AddNumber("fov", 60, shadingtree.Options{})
	sym := t.Symbol("camera")
	body := fmt.Sprintf("RayGenShader %s() { return pinhole_camera(%s, %s, %s, %s); }", sym, eye, dir, up, fov)
	for _, h := range t.PullHeader() {
		t.Emit("%s\n", h)
	}
	if _, isNew := t.MemoizeGroup(body, sym); isNew {
		t.Emit("%s\n", body)
	}
	t.EndClosure()
}

// generateLights serializes every scene Light object's shader
// fragment, then builds and exports the finite-light BVH (§4.D's
// "LightHierarchy builder") through the resource cache, deduplicated
// exactly like a Measured BSDF's binary export.
func (r *Runtime) generateLights(t *shadingtree.Tree) error {
	objs := r.sc.Arena.ByType(scene.TLight)
	var entries []light.Entry
	for _, obj := range objs {
		plugin := r.lights.Create(obj)
		if _, err := plugin.Serialize(t, obj); err != nil {
			t.Warn("light", obj.Name, "failed to generate light %q: %v", obj.Name, err)
			continue
		}
		if plugin.IsInfinite() {
			continue
		}
		pos, _ := plugin.Position(obj)
		dir, _ := plugin.Direction(obj)
		entries = append(entries, light.Entry{
			Position:  pos,
			Flux:      plugin.ComputeFlux(obj),
			Direction: dir,
			ID:        int32(obj.ID),
		})
	}
	if len(entries) == 0 {
		return nil
	}
	r.lightHierarchy = light.Build(entries)

	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	light.Embed(w, entries)
	if err := w.Error(); err != nil {
		return err
	}
	fp := rescache.Fingerprint(buf.Bytes())
	logicalID := rescache.LogicalID("light-hierarchy", fp)
	if _, ok := r.cache.Lookup(logicalID); !ok {
		if _, err := r.cache.Store(logicalID, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// effectiveSPI resolves the samples-per-iteration a variant's
// generated code should read: the variant's own OverrideSPI wins when
// set (e.g. PPM's first pass locking SPI=1), otherwise the runtime's
// RuntimeOptions.SPIOverride applies, falling back to 1 (spec §3's
// "SPI override" / §4.D's "ambient sample-per-iteration" default).
func effectiveSPI(vi technique.VariantInfo, override int) int {
	switch {
	case vi.OverrideSPI != 0:
		return vi.OverrideSPI
	case override != 0:
		return override
	default:
		return 1
	}
}

// generateVariant serializes technique variant v's main body plus its
// optional before/after hooks, recording the entry-point names the
// compiled Program will expose for each.
func (r *Runtime) generateVariant(t *shadingtree.Tree, v int) error {
	r.global.Set(fmt.Sprintf("variant%d.spi", v),
		shadingtree.IntValue(int64(effectiveSPI(r.techInfo.Variants[v], r.opts.SPIOverride))))

	closureID, err := r.techPlugin.Serialize(t, r.techObj, v)
	if err != nil {
		return err
	}
	p := variantProgram{rayGenName: fmt.Sprintf("technique_%d", closureID)}

	beforeID := t.BeginClosure(r.techObj)
	before, err := r.techPlugin.BeforeIteration(t, r.techObj, v)
	if err != nil {
		t.EndClosure()
		return err
	}
	if before != "" {
		for _, h := range t.PullHeader() {
			t.Emit("%s\n", h)
		}
		name := fmt.Sprintf("before_iteration_%d", beforeID)
		if _, isNew := t.MemoizeGroup(before, name); isNew {
			t.Emit("%s\n", before)
		}
		p.beforeName = name
	}
	if err := t.EndClosure(); err != nil {
		return err
	}

	afterID := t.BeginClosure(r.techObj)
	after, err := r.techPlugin.AfterIteration(t, r.techObj, v)
	if err != nil {
		t.EndClosure()
		return err
	}
	if after != "" {
		for _, h := range t.PullHeader() {
			t.Emit("%s\n", h)
		}
		name := fmt.Sprintf("after_iteration_%d", afterID)
		if _, isNew := t.MemoizeGroup(after, name); isNew {
			t.Emit("%s\n", after)
		}
		p.afterName = name
	}
	if err := t.EndClosure(); err != nil {
		return err
	}

	r.programs[v] = p
	return nil
}

// framebufferFor returns the destination framebuffer for variant v,
// lazily allocating a dedicated, persistent buffer for LockFramebuffer
// variants sized by OverrideWidth/Height (defaulting to 1x1), per
// §4.E step 1: "Prepare per-variant framebuffer (unless
// LockFramebuffer)".
func (r *Runtime) framebufferFor(v int, vi technique.VariantInfo) *Framebuffer {
	if !vi.LockFramebuffer {
		return r.mainFB
	}
	if fb, ok := r.lockedFBs[v]; ok {
		return fb
	}
	w, h := vi.OverrideWidth, vi.OverrideHeight
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	fb := NewFramebuffer(w, h)
	r.lockedFBs[v] = fb
	return fb
}

// Step runs one iteration (§4.E): the selector decides which variants
// run, and each runs BeforeIteration -> ray generation -> AfterIteration
// in order (§5 ordering guarantee), followed by an optional denoise
// pass. ignoreDenoiser forces step 5 off regardless of RuntimeOptions.
func (r *Runtime) Step(ignoreDenoiser bool) error {
	if r.techPlugin == nil {
		return newRuntimeErr("no scene loaded")
	}
	iter := r.iteration
	r.iteration++

	selected := r.techPlugin.SelectVariants(iter, r.techObj)
	for _, v := range selected {
		if v < 0 || v >= len(r.programs) {
			return newRuntimeErr(fmt.Sprintf("variant selector returned out-of-range index %d", v))
		}
		vi := r.techInfo.Variants[v]
		fb := r.framebufferFor(v, vi)
		p := r.programs[v]

		payload := make([]byte, 4*(vi.PrimaryPayloadCount+vi.SecondaryPayloadCount))

		if p.beforeName != "" {
			if fn, ok := p.program.Lookup(p.beforeName); ok {
				fn(payload)
			}
		}
		if p.rayGenName != "" {
			if fn, ok := p.program.Lookup(p.rayGenName); ok {
				fn(payload)
			} else {
				return newRuntimeErr(fmt.Sprintf("compiled program missing ray-gen entry %q", p.rayGenName))
			}
		}
		if p.afterName != "" {
			if fn, ok := p.program.Lookup(p.afterName); ok {
				fn(payload)
			}
		}
		_ = fb // the real per-pixel write happens inside the compiled kernel (out of scope, §1)
	}

	if !ignoreDenoiser && r.techInfo.DenoiserCompatible && r.opts.Denoiser != DenoiserOff {
		if r.opts.Denoiser != DenoiserOnlyFirstIteration || iter == 0 {
			beauty, _, _ := r.mainFB.Get("")
			var normal, albedo []float32
			if d, _, ok := r.mainFB.Get("normal"); ok {
				normal = d
			}
			if d, _, ok := r.mainFB.Get("albedo"); ok {
				albedo = d
			}
			out := make([]float32, len(beauty))
			if err := r.denoiser.Denoise(beauty, normal, albedo, r.mainFB.Width, r.mainFB.Height, out); err != nil {
				r.warner.Once("runtime", "denoise", "denoiser failed, continuing without denoising: %v", err)
			} else {
				copy(beauty, out)
			}
		}
	}
	return nil
}

// Ray is one traced sample for Trace's light-path-tracer mode (§4.E
// "trace(rays)"), matching the CLI's ray-file line format (§6).
type Ray struct {
	Origin, Dir linear.V3
	TMin, TMax  float32
}

// Trace runs the loaded technique's primary ray-gen entry once per
// ray in rays, outside the normal iteration loop, returning one
// radiance sample per ray. The ray is marshaled into the leading 32
// bytes of the payload buffer; by convention a compiled kernel writes
// its resulting radiance into the next 12 bytes (three float32s).
func (r *Runtime) Trace(rays []Ray) ([]linear.V3, error) {
	if r.techPlugin == nil {
		return nil, newRuntimeErr("no scene loaded")
	}
	if len(r.programs) == 0 || r.programs[0].rayGenName == "" {
		return nil, newRuntimeErr("technique has no ray-gen entry to trace")
	}
	p := r.programs[0]
	fn, ok := p.program.Lookup(p.rayGenName)
	if !ok {
		return nil, newRuntimeErr(fmt.Sprintf("compiled program missing ray-gen entry %q", p.rayGenName))
	}
	out := make([]linear.V3, len(rays))
	for i, ray := range rays {
		payload := make([]byte, 44)
		putF32(payload[0:4], ray.Origin[0])
		putF32(payload[4:8], ray.Origin[1])
		putF32(payload[8:12], ray.Origin[2])
		putF32(payload[12:16], ray.Dir[0])
		putF32(payload[16:20], ray.Dir[1])
		putF32(payload[20:24], ray.Dir[2])
		putF32(payload[24:28], ray.TMin)
		putF32(payload[28:32], ray.TMax)
		fn(payload)
		out[i] = linear.V3{getF32(payload[32:36]), getF32(payload[36:40]), getF32(payload[40:44])}
	}
	return out, nil
}

// Reset clears the iteration counter and every framebuffer (§4.E
// "reset()").
func (r *Runtime) Reset() {
	r.iteration = 0
	if r.mainFB != nil {
		r.mainFB.ClearAll()
	}
	r.lockedFBs = make(map[int]*Framebuffer)
}

// GetFramebuffer returns the named AOV channel's data and row stride
// in float32 elements ("" is beauty, §4.E "getFramebuffer(aov_name)").
// The returned slice is valid until the next Step, Reset or
// ClearFramebuffer call (§5).
func (r *Runtime) GetFramebuffer(aov string) ([]float32, int, error) {
	if r.mainFB == nil {
		return nil, 0, newRuntimeErr("no scene loaded")
	}
	data, stride, ok := r.mainFB.Get(aov)
	if !ok {
		return nil, 0, newRuntimeErr(fmt.Sprintf("AOV %q is not enabled", aov))
	}
	return data, stride, nil
}

// ClearFramebuffer zeroes one AOV channel ("" is beauty, §4.E
// "clearFramebuffer(aov?)").
func (r *Runtime) ClearFramebuffer(aov string) error {
	if r.mainFB == nil {
		return newRuntimeErr("no scene loaded")
	}
	if !r.mainFB.Clear(aov) {
		return newRuntimeErr(fmt.Sprintf("AOV %q is not enabled", aov))
	}
	return nil
}

// ClearAllFramebuffers zeroes every AOV channel, the "or all" half of
// §4.E's "clearFramebuffer(aov?)".
func (r *Runtime) ClearAllFramebuffers() error {
	if r.mainFB == nil {
		return newRuntimeErr("no scene loaded")
	}
	r.mainFB.ClearAll()
	return nil
}

// SetParameter mutates the global parameter registry (§4.E
// "setParameter(name, v)"). Per §7.6, it fails without mutating the
// registry if name was never declared (MakeGlobal) by the loaded
// scene, or if v's Kind doesn't match the declared parameter's Kind.
// The write becomes visible to the next Step, not one already
// running (§5).
func (r *Runtime) SetParameter(name string, v shadingtree.Value) error {
	existing, ok := r.global.Get(name)
	if !ok {
		return newRuntimeErr(fmt.Sprintf("no such parameter %q", name))
	}
	if existing.Kind != v.Kind {
		return newRuntimeErr(fmt.Sprintf("wrong type for parameter %q", name))
	}
	r.global.Set(name, v)
	return nil
}

// SetCameraOrientationParameter writes eye/dir/up into the three
// well-known global vec3 parameters __camera_eye, __camera_dir and
// __camera_up (§4.E "setCameraOrientationParameter(orientation)").
// The ray-gen that generateCamera emits takes eye, direction and up
// from the camera object's properties, not from these parameters.
func (r *Runtime) SetCameraOrientationParameter(eye, dir, up linear.V3) {
	r.global.Set("__camera_eye", shadingtree.Vec3Value(eye))
	r.global.Set("__camera_dir", shadingtree.Vec3Value(dir))
	r.global.Set("__camera_up", shadingtree.Vec3Value(up))
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
