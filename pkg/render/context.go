package render

import (
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/scene"
)

// Context is handed to every visible node during aggregation so it can
// contribute render data. It bundles the observer description, the frustum
// to cull against, and the batch storage to write into. A Context lives
// only for the duration of one FromGraph call.
type Context struct {
	// ObserverPosition is the world-space position of the observer.
	ObserverPosition math3d.Vec3
	// ZNear is the near clipping plane distance.
	ZNear float64
	// ZFar is the far clipping plane distance.
	ZFar float64
	// ViewMatrix is the observer's view matrix.
	ViewMatrix math3d.Mat4
	// ProjectionMatrix is the observer's projection matrix.
	ProjectionMatrix math3d.Mat4
	// Frustum is built from the observer's matrices. Frustum culling is the
	// node's own responsibility: test against this before contributing.
	Frustum *Frustum
	// Storage receives the node's draw requests. A node must write at least
	// one surface instance here to be rendered.
	Storage *BatchStorage
	// Graph is the graph being aggregated, for nodes that need to look at
	// other nodes.
	Graph *scene.Graph
	// RenderPassName names the render pass the context was created for.
	RenderPassName string
}

// Collector is the capability a node implements to contribute drawable
// data. Nodes without it are traversed but contribute nothing.
type Collector interface {
	CollectRenderData(ctx *Context)
}
