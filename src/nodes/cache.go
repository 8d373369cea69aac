package nodes

import "sync"

// Cache maps global ids to materialized nodes for the lifetime of one request or test.
// Implementations must be safe for concurrent use: edge queries resolve endpoints in parallel.
type Cache interface {
	Get(id string) (*Node, bool)
	Set(id string, node *Node)
}

type MapCache struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func NewCache() *MapCache {
	return &MapCache{nodes: make(map[string]*Node)}
}

func (c *MapCache) Get(id string) (*Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[id]
	return n, ok
}

func (c *MapCache) Set(id string, node *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes[id] = node
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.nodes)
}

func cacheGet(cache Cache, id string) (*Node, bool) {
	if cache == nil {
		return nil, false
	}
	return cache.Get(id)
}

func cacheSet(cache Cache, node *Node) {
	if cache == nil || node == nil {
		return
	}
	cache.Set(node.ID(), node)
}
