package mesh

import (
	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/surface"
)

// Marker is a flat colored quad lying on the ground, used for selection
// highlights, waypoints, and similar decorations. Markers go through the
// merge path: every marker sharing a material and decal layer lands in one
// batch, drawn with a single call regardless of how many there are.
type Marker struct {
	scene.Base

	Self scene.Handle

	// Position is the center of the quad; Size its edge length.
	Position math3d.Vec3
	Size     float64
	Color    [4]float64

	Material   *material.Shared
	DecalLayer uint8
	SortKey    uint64
}

// NewMarker creates a marker of the given size at the origin.
func NewMarker(name string, size float64) *Marker {
	return &Marker{
		Base:  scene.Base{NodeName: name},
		Size:  size,
		Color: [4]float64{1, 1, 1, 1},
	}
}

// GlobalPosition returns the marker's world-space position.
func (m *Marker) GlobalPosition() math3d.Vec3 {
	return m.Position
}

// CollectRenderData emits the marker's quad, pre-transformed to world
// space, into the shared decal batch for its material and layer.
func (m *Marker) CollectRenderData(ctx *render.Context) {
	if !ctx.Frustum.ContainsPoint(m.Position) {
		return
	}

	half := m.Size / 2
	// Slightly above the ground to avoid z-fighting with it.
	y := m.Position.Y + 0.01

	vertices := []surface.Vertex{
		{Position: math3d.V3(m.Position.X-half, y, m.Position.Z-half), UV: math3d.V2(0, 0), Color: m.Color},
		{Position: math3d.V3(m.Position.X+half, y, m.Position.Z-half), UV: math3d.V2(1, 0), Color: m.Color},
		{Position: math3d.V3(m.Position.X+half, y, m.Position.Z+half), UV: math3d.V2(1, 1), Color: m.Color},
		{Position: math3d.V3(m.Position.X-half, y, m.Position.Z+half), UV: math3d.V2(0, 1), Color: m.Color},
	}
	triangles := []surface.Triangle{
		{0, 1, 2},
		{0, 2, 3},
	}

	ctx.Storage.PushTriangles(
		surface.LayoutDecal,
		vertices,
		triangles,
		m.Material,
		render.PathForward,
		m.DecalLayer,
		m.SortKey,
		false,
		m.Self,
	)
}
