// Package jit defines the interfaces the runtime uses to hand
// generated shader source to an external just-in-time compiler and
// get back callable function pointers.
//
// The shape is lifted directly from the teacher's driver package:
// driver.Driver.Open returns a driver.GPU, which in turn exposes
// NewShaderCode([]byte) (ShaderCode, error) — "hand the driver a
// binary blob, get back an opaque executable object" is exactly the
// contract a shader JIT needs, just with source text instead of a
// precompiled binary and function pointers instead of a
// driver.ShaderFunc. No concrete backend lives in this package; like
// driver, it only defines the boundary a real JIT (LLVM ORC, ISPC,
// a GPU module loader, ...) would implement.
//
// Register/Open follow driver.Register/loadDriver's own convention: a
// backend package registers a Factory from its init function via a
// blank import, and callers such as cmd/igtrace pick one by a
// substring-matched name at runtime instead of importing it directly.
package jit

import (
	"errors"
	"log"
	"strings"
	"sync"
)

// Role identifies which dispatcher slot a compiled entry point fills.
type Role int

const (
	RoleRayGen Role = iota
	RoleMiss
	RoleHit
	RoleAdvancedShadow
	// RoleCallback identifies a technique's BeforeIteration/
	// AfterIteration hook (§4.D "CallbackGenerators") — not one of
	// the three dispatcher roles the generated program exposes to
	// ray tracing itself, but still a plain function the runtime
	// driver looks up and calls at a fixed point in its step loop.
	RoleCallback
)

func (r Role) String() string {
	switch r {
	case RoleRayGen:
		return "raygen"
	case RoleMiss:
		return "miss"
	case RoleHit:
		return "hit"
	case RoleAdvancedShadow:
		return "advancedShadow"
	case RoleCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// EntryPoint names a function the compiled Program must expose.
type EntryPoint struct {
	Name string
	Role Role
}

// FuncPtr is a compiled entry point, callable with an opaque per-ray
// payload buffer (the kernel decodes its own layout).
type FuncPtr func(payload []byte)

// Program is a compiled shader group: source text plus a set of
// entry points, analogous to driver.ShaderCode plus a
// []driver.ShaderFunc.
type Program interface {
	// Lookup returns the compiled function for name, if the group
	// exposed it.
	Lookup(name string) (FuncPtr, bool)

	// GroupID is the content-hash group ID the shading tree assigned
	// this program's source, used by the runtime dispatcher to pick
	// miss/hit shaders without recompiling.
	GroupID() string

	// Destroy releases any resources the compiler allocated for this
	// program. Destroying a nil or already-destroyed Program has no
	// effect.
	Destroy()
}

// Compiler is the sole collaborator the runtime driver needs from an
// external JIT backend.
type Compiler interface {
	// Name identifies the backend (e.g. "cpu-llvm", "cpu-ispc").
	Name() string

	// Compile turns source into a Program exposing entries. Source is
	// whatever textual IR or C-like shading language the backend
	// accepts; the shading tree and plugin graphs are responsible for
	// emitting a dialect this Compiler understands.
	Compile(groupID string, source string, entries []EntryPoint) (Program, error)

	// Close releases process-wide JIT state. Compiling after Close
	// returns an error.
	Close() error
}

// ErrClosed is returned by a Compiler method called after Close.
var ErrClosed = errors.New("jit: compiler is closed")

// ErrNoBackend is returned by Open when no registered Compiler's name
// contains the requested substring.
var ErrNoBackend = errors.New("jit: no compiler backend found")

// Factory constructs a fresh Compiler instance for a registered
// backend name.
type Factory func() (Compiler, error)

var (
	mu        sync.Mutex
	factories []namedFactory
)

type namedFactory struct {
	name string
	new  Factory
}

// Register registers a backend Factory under name, following the
// database/sql and driver.Register convention: a real JIT backend
// (LLVM ORC, ISPC, a GPU module loader, ...) lives in its own package
// and calls Register exactly once from an init function. This package
// never imports a concrete backend itself — it only keeps the
// process-wide list an importer's blank import populates.
func Register(name string, new Factory) {
	mu.Lock()
	defer mu.Unlock()
	for i := range factories {
		if factories[i].name == name {
			factories[i].new = new
			log.Printf("[!] jit backend %q replaced", name)
			return
		}
	}
	factories = append(factories, namedFactory{name: name, new: new})
}

// Backends returns the names of every registered Factory, in
// registration order.
func Backends() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, len(factories))
	for i := range factories {
		names[i] = factories[i].name
	}
	return names
}

// Open constructs a Compiler from the first registered backend whose
// name contains name (name == "" matches the first registered
// backend), mirroring driver.loadDriver's substring-match lookup.
func Open(name string) (Compiler, error) {
	mu.Lock()
	candidates := make([]namedFactory, len(factories))
	copy(candidates, factories)
	mu.Unlock()

	for _, f := range candidates {
		if !strings.Contains(f.name, name) {
			continue
		}
		c, err := f.new()
		if err != nil {
			continue
		}
		return c, nil
	}
	return nil, ErrNoBackend
}
