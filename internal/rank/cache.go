package rank

import "sync"

// vectorCache memoizes embeddings for the lifetime of the engine. There is
// deliberately no eviction: a run touches tens of videos and hundreds of
// segments, and entries are discarded with the engine. Concurrent writers
// racing on the same key at worst recompute redundantly; the last write wins
// with a complete vector either way.
type vectorCache struct {
	mu sync.RWMutex
	m  map[string][]float32
}

func newVectorCache() *vectorCache {
	return &vectorCache{m: make(map[string][]float32)}
}

func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.m[key]
	return vec, ok
}

func (c *vectorCache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = vec
}

func (c *vectorCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
