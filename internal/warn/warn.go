// Package warn implements one-shot-per-source diagnostic logging.
//
// Measured-BSDF loaders must emit at most one warning per anomaly
// class for a given input file, no matter how many individual values
// trigger it (spec: Klems/Tensor-Tree loaders clamp negative or
// non-finite scattering data and log a single warning per file).
package warn

import (
	"log"
	"sync"
)

// Tracker records which (source, key) warnings have already fired.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]bool
}

// Once logs format/args via log.Printf the first time it is called
// for the given source and key; subsequent calls are no-ops.
func (t *Tracker) Once(source, key, format string, args ...any) {
	t.mu.Lock()
	if t.seen == nil {
		t.seen = make(map[string]bool)
	}
	k := source + "\x00" + key
	if t.seen[k] {
		t.mu.Unlock()
		return
	}
	t.seen[k] = true
	t.mu.Unlock()
	log.Printf("%s: "+format, append([]any{source}, args...)...)
}
