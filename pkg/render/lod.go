package render

import (
	"github.com/taigrr/lumen/pkg/scene"
)

// LODVisibility computes one visibility flag per graph slot for the given
// observer. Every slot defaults to visible; for each node owning an LOD
// group, every object referenced by a level is visible only while the
// observer's normalized distance to it falls inside the level's range.
//
// Levels are processed in declaration order and the last write to a slot
// wins, so overlapping ranges for the same object are an ordering
// dependency, not a commutative merge. Handles to removed objects are
// skipped silently.
func LODVisibility(graph *scene.Graph, observer ObserverInfo) []bool {
	filter := make([]bool, graph.Capacity())
	for i := range filter {
		filter[i] = true
	}

	zRange := observer.ZFar - observer.ZNear

	graph.Pairs(func(_ scene.Handle, node scene.Node) bool {
		group := node.LODGroup()
		if group == nil {
			return true
		}
		for _, level := range group.Levels {
			for _, object := range level.Objects {
				ref := graph.TryGet(object)
				if ref == nil {
					continue
				}
				distance := observer.Position.Distance(ref.GlobalPosition())
				normalized := (distance - observer.ZNear) / zRange
				filter[object.Index] = normalized >= level.Begin && normalized <= level.End
			}
		}
		return true
	})

	return filter
}
