// Package mesh provides the drawable scene nodes of Lumen: instanced mesh
// nodes rendering shared surfaces, and markers emitting merged decorative
// geometry.
package mesh

import (
	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/surface"
)

// Surface pairs shared geometry with a material on a mesh node. A non-empty
// bone palette makes the surface render through the skinned pipeline.
type Surface struct {
	Data         *surface.SharedData
	Material     *material.Shared
	BoneMatrices []math3d.Mat4
}

// Node is a mesh in the scene graph. It contributes one surface instance
// per Surface during aggregation, after testing its world bounds against
// the observer's frustum.
type Node struct {
	scene.Base

	// Self is the node's own handle, assigned by the caller right after
	// adding the node to the graph. It feeds the persistent instance
	// identity, so it must be set before the first aggregation.
	Self scene.Handle

	Transform math3d.Mat4
	Surfaces  []Surface

	RenderPath  render.RenderPath
	DecalLayer  uint8
	DepthOffset float64

	// FrustumCullingEnabled can be switched off for nodes that must always
	// render, like skyboxes.
	FrustumCullingEnabled bool

	// SortKey orders this node's batches during submission.
	SortKey uint64
}

// NewNode creates a mesh node at the identity transform with culling on.
func NewNode(name string) *Node {
	return &Node{
		Base:                  scene.Base{NodeName: name},
		Transform:             math3d.Identity(),
		FrustumCullingEnabled: true,
	}
}

// GlobalPosition returns the node's world-space position.
func (n *Node) GlobalPosition() math3d.Vec3 {
	return n.Transform.Translation()
}

// WorldBounds returns the node's bounding box in world space, the union of
// all surface bounds under the node transform.
func (n *Node) WorldBounds() render.AABB {
	var bounds render.AABB
	first := true
	for _, s := range n.Surfaces {
		data := s.Data.Lock()
		bmin, bmax := data.Bounds()
		s.Data.Unlock()

		local := render.NewAABB(bmin, bmax).Transform(n.Transform)
		if first {
			bounds = local
			first = false
		} else {
			bounds = bounds.Union(local)
		}
	}
	return bounds
}

// CollectRenderData contributes one instance per surface to the pass,
// skipping the node entirely when its bounds fall outside the frustum.
func (n *Node) CollectRenderData(ctx *render.Context) {
	if len(n.Surfaces) == 0 {
		return
	}
	if n.FrustumCullingEnabled && !ctx.Frustum.IntersectAABB(n.WorldBounds()) {
		return
	}

	for i, s := range n.Surfaces {
		ctx.Storage.Push(
			s.Data,
			s.Material,
			n.RenderPath,
			n.DecalLayer,
			n.SortKey,
			render.InstanceData{
				WorldTransform: n.Transform,
				BoneMatrices:   s.BoneMatrices,
				DepthOffset:    n.DepthOffset,
				PersistentID:   render.NewPersistentID(s.Data, n.Self, i),
				NodeHandle:     n.Self,
			},
		)
	}
}
