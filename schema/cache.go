package schema

import (
	"path/filepath"
	"sync"
)

// Cache lets a batch orchestrator compile each distinct schema file once
// and hand the same immutable *Model to every worker goroutine (spec.md
// §5: "the schema model is safe to share across threads because it is
// immutable after compilation"). Grounded in the teacher's SchemaCache,
// trimmed to the one thing this module's concurrency model actually
// needs: single-flight compilation per resolved path.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	opts    CompileOptions
}

type cacheEntry struct {
	once  sync.Once
	model *Model
	err   error
}

// NewCache creates an empty cache. opts is applied to every Compile call
// this cache performs.
func NewCache(opts CompileOptions) *Cache {
	return &Cache{entries: make(map[string]*cacheEntry), opts: opts}
}

// Get compiles path on first request and returns the cached *Model on
// every subsequent call, regardless of how many goroutines call
// concurrently for the same path.
func (c *Cache) Get(path string) (*Model, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}

	c.mu.RLock()
	entry, ok := c.entries[resolved]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		entry, ok = c.entries[resolved]
		if !ok {
			entry = &cacheEntry{}
			c.entries[resolved] = entry
		}
		c.mu.Unlock()
	}

	entry.once.Do(func() {
		entry.model, entry.err = Compile(path, c.opts)
	})
	return entry.model, entry.err
}
