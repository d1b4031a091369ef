package hash

import (
	"slices"
	"strconv"
	"sync"
)

const _defaultReplicas = 100

type Func func(data []byte) uint64

// ConsistentHash maps keys onto a ring of named nodes. Adding or removing a
// node only moves the keys that fell on its virtual points.
type ConsistentHash struct {
	lock     sync.RWMutex
	ring     map[uint64]string
	nodes    map[string]struct{}
	keys     []uint64
	hashFunc Func
	replicas int
}

// ConsistentHashOption configures a ConsistentHash.
type ConsistentHashOption func(c *ConsistentHash)

// WithReplicas sets the number of virtual points per node.
func WithReplicas(replicas int) ConsistentHashOption {
	return func(c *ConsistentHash) {
		if replicas > 0 {
			c.replicas = replicas
		}
	}
}

// WithHashFunc replaces the default murmur3 ring hash.
func WithHashFunc(hashFunc Func) ConsistentHashOption {
	return func(c *ConsistentHash) {
		c.hashFunc = hashFunc
	}
}

// NewConsistentHash returns an empty ring using murmur3 and 100 replicas.
func NewConsistentHash(opts ...ConsistentHashOption) *ConsistentHash {
	c := &ConsistentHash{
		ring:     make(map[uint64]string),
		nodes:    make(map[string]struct{}),
		hashFunc: Hash,
		replicas: _defaultReplicas,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add places node on the ring. Adding an existing node is a no-op.
func (c *ConsistentHash) Add(node string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.nodes[node]; ok {
		return
	}
	c.nodes[node] = struct{}{}
	for i := 0; i < c.replicas; i++ {
		h := c.hashFunc([]byte(node + "#" + strconv.Itoa(i)))
		if _, taken := c.ring[h]; taken {
			continue
		}
		c.ring[h] = node
		c.keys = append(c.keys, h)
	}
	slices.Sort(c.keys)
}

// Remove takes node off the ring.
func (c *ConsistentHash) Remove(node string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.nodes[node]; !ok {
		return
	}
	delete(c.nodes, node)
	keys := c.keys[:0]
	for _, k := range c.keys {
		if c.ring[k] == node {
			delete(c.ring, k)
			continue
		}
		keys = append(keys, k)
	}
	c.keys = keys
}

// Get returns the node owning key.
func (c *ConsistentHash) Get(key []byte) (string, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if len(c.keys) == 0 {
		return "", false
	}
	h := c.hashFunc(key)
	idx, _ := slices.BinarySearch(c.keys, h)
	if idx == len(c.keys) {
		idx = 0
	}
	return c.ring[c.keys[idx]], true
}

// Len returns the number of nodes on the ring.
func (c *ConsistentHash) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.nodes)
}
