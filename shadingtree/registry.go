package shadingtree

import (
	"sync"

	"github.com/embervale/photon/internal/bitvec"
	"github.com/embervale/photon/linear"
)

// ValueKind identifies the dynamic type carried by a Value.
type ValueKind int

const (
	VInt ValueKind = iota
	VFloat
	VVec3
	VVec4
)

// Value is a parameter value that can live in the global registry and
// be overridden from outside the generated shader code (setParameter,
// §4.E).
type Value struct {
	Kind ValueKind
	I    int64
	F    float32
	V3   linear.V3
	V4   linear.V4
}

func IntValue(v int64) Value      { return Value{Kind: VInt, I: v} }
func FloatValue(v float32) Value  { return Value{Kind: VFloat, F: v} }
func Vec3Value(v linear.V3) Value { return Value{Kind: VVec3, V3: v} }
func Vec4Value(v linear.V4) Value { return Value{Kind: VVec4, V4: v} }

// Registry is the runtime-wide parameter table. It is safe for
// concurrent Set calls between steps (§5: "the parameter registry
// uses internal locking so cross-thread setParameter is permitted
// between steps").
//
// Alongside the name->Value map, Registry allocates each distinct
// name a slot index from a bitvec.V, the same grow/search/set/unset
// arena-allocation idiom internal/bitm gives scene.Arena's object IDs
// (scene.go's Arena). A freed slot (Delete) is immediately eligible
// for reuse by the next unseen name, so LiveSlots always reports the
// number of names currently registered, not the historical high-water
// mark — useful for a caller auditing how many MakeGlobal parameters
// a loaded scene actually exposed (§4.C's "lifts parameter into the
// global registry for external override").
type Registry struct {
	mu     sync.Mutex
	values map[string]Value
	slots  map[string]int
	live   bitvec.V[uint64]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		values: make(map[string]Value),
		slots:  make(map[string]int),
	}
}

// Set stores v under name, creating or overwriting the entry and
// allocating a fresh slot index for a name seen for the first time.
func (r *Registry) Set(name string, v Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[name]; !ok {
		idx, ok := r.live.Search()
		if !ok {
			idx = r.live.Grow(1)
		}
		r.live.Set(idx)
		r.slots[name] = idx
	}
	r.values[name] = v
}

// Get retrieves the value stored under name.
func (r *Registry) Get(name string) (Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[name]
	return v, ok
}

// Delete removes name from the registry, if present, freeing its slot
// index for reuse by the next newly-registered name.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.slots[name]; ok {
		r.live.Unset(idx)
		delete(r.slots, name)
	}
	delete(r.values, name)
}

// LiveSlots returns the number of distinct parameter names currently
// registered.
func (r *Registry) LiveSlots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
