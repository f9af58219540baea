// Package rescache implements the content-addressed external-resource
// cache (§4.F): Klems/Tensor-Tree exports, light-hierarchy exports,
// and any other producer that writes a file once and wants later
// identical requests to reuse it for the lifetime of one runtime.
//
// The growth discipline is the same one internal/bitm uses for its
// bitmap words: entries are only ever added, never individually
// freed, and the whole structure is dropped at once when its owner
// (a runtime instance, in this case) is destroyed.
package rescache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// Entry is what the cache hands back on a hit: the exported file's
// path plus the logical ID it was stored under.
type Entry struct {
	LogicalID string
	Path      string
}

// Cache is a directory-backed, content-addressed store. Safe for
// concurrent use.
type Cache struct {
	dir string

	mu      sync.Mutex
	entries map[string]Entry
}

// New creates a Cache rooted at dir. dir is created on first Store
// call if it does not already exist.
func New(dir string) *Cache {
	return &Cache{dir: dir, entries: make(map[string]Entry)}
}

// Fingerprint returns the hex-encoded sha256 of data, suitable as the
// fingerprint half of a logical ID.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LogicalID builds category+":"+fingerprint, the cache key (§4.F).
func LogicalID(category, fingerprint string) string {
	return category + ":" + fingerprint
}

// Lookup returns the cached Entry for logicalID, if present.
func (c *Cache) Lookup(logicalID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[logicalID]
	return e, ok
}

// Store writes data to a file named after logicalID's fingerprint
// half inside the cache directory (creating the directory if
// necessary) and records the resulting Entry. If logicalID is already
// present, Store returns the existing Entry and does not rewrite the
// file — producers are expected to call Lookup first, but Store
// itself stays idempotent so callers racing on first use never
// corrupt the cache.
func (c *Cache) Store(logicalID string, data []byte) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[logicalID]; ok {
		return e, nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Entry{}, err
	}
	name := sanitizeFilename(logicalID)
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Entry{}, err
	}
	e := Entry{LogicalID: logicalID, Path: path}
	c.entries[logicalID] = e
	return e, nil
}

// Dir returns the cache's backing directory.
func (c *Cache) Dir() string { return c.dir }

func sanitizeFilename(logicalID string) string {
	b := make([]byte, 0, len(logicalID))
	for i := 0; i < len(logicalID); i++ {
		switch c := logicalID[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b = append(b, c)
		default:
			b = append(b, '_')
		}
	}
	return string(b) + ".bin"
}
