// Package render provides per-frame render data aggregation for Lumen:
// it walks a scene graph from an observer's point of view, collects drawable
// surfaces from visible nodes, merges compatible draw requests into batches,
// and produces a sorted batch list ready for submission.
package render

import (
	"github.com/taigrr/lumen/pkg/math3d"
)

// ObserverInfo describes an observer: a real camera, a shadow-casting
// light's virtual camera, or any other viewpoint visibility is evaluated
// from. It is a plain value; construct one per render pass.
type ObserverInfo struct {
	// Position is the world-space position of the observer.
	Position math3d.Vec3
	// ZNear is the near clipping plane distance.
	ZNear float64
	// ZFar is the far clipping plane distance.
	ZFar float64
	// ViewMatrix is the observer's view matrix.
	ViewMatrix math3d.Mat4
	// ProjectionMatrix is the observer's projection matrix.
	ProjectionMatrix math3d.Mat4
}
