// Package scene provides the pool-backed scene graph that render passes
// traverse. Nodes are stored in dense slots addressed by generational
// handles, so a handle to a removed node can be detected as stale instead
// of silently resolving to whatever reused its slot.
package scene

import (
	"github.com/taigrr/lumen/pkg/math3d"
)

// Handle addresses a node slot in a Graph. The generation disambiguates
// reused slots; the zero Handle is never valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// NilHandle is the invalid handle.
var NilHandle = Handle{}

// IsNil reports whether the handle is the invalid handle.
func (h Handle) IsNil() bool {
	return h.Generation == 0
}

// Node is the minimal interface every graph node implements. Nodes that
// contribute drawable data additionally implement render.Collector; the
// graph itself doesn't know about rendering.
type Node interface {
	// Name returns a human-readable node name for diagnostics.
	Name() string
	// GlobalPosition returns the node's world-space position.
	GlobalPosition() math3d.Vec3
	// LODGroup returns the node's LOD group, or nil if the node doesn't
	// govern level-of-detail visibility of other nodes.
	LODGroup() *LODGroup
}

type slot struct {
	node       Node
	generation uint32
}

// Graph owns the node slots. It is not safe for concurrent mutation.
type Graph struct {
	slots []slot
	free  []uint32
	count int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Add inserts a node and returns its handle. Freed slots are reused before
// the slot array grows.
func (g *Graph) Add(n Node) Handle {
	g.count++
	if len(g.free) > 0 {
		idx := g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		s := &g.slots[idx]
		s.node = n
		s.generation++
		return Handle{Index: idx, Generation: s.generation}
	}
	g.slots = append(g.slots, slot{node: n, generation: 1})
	return Handle{Index: uint32(len(g.slots) - 1), Generation: 1}
}

// Remove deletes the node addressed by h. Returns false if the handle is
// stale or invalid.
func (g *Graph) Remove(h Handle) bool {
	if !g.isLive(h) {
		return false
	}
	g.slots[h.Index].node = nil
	g.free = append(g.free, h.Index)
	g.count--
	return true
}

// TryGet resolves h to its node, or nil if the handle is stale, invalid,
// or out of range.
func (g *Graph) TryGet(h Handle) Node {
	if !g.isLive(h) {
		return nil
	}
	return g.slots[h.Index].node
}

func (g *Graph) isLive(h Handle) bool {
	if h.IsNil() || int(h.Index) >= len(g.slots) {
		return false
	}
	s := &g.slots[h.Index]
	return s.node != nil && s.generation == h.Generation
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	return g.count
}

// Capacity returns the number of slots, live or not. Per-slot arrays (like
// the LOD visibility filter) are sized by this.
func (g *Graph) Capacity() int {
	return len(g.slots)
}

// Pairs visits every live (handle, node) pair in slot order. The visitor
// returns false to stop early.
func (g *Graph) Pairs(fn func(Handle, Node) bool) {
	for i := range g.slots {
		s := &g.slots[i]
		if s.node == nil {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.generation}, s.node) {
			return
		}
	}
}
