package render

import (
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/surface"
)

// BatchView visualizes the contents of a batch storage as wireframes. It
// draws every instance's transformed bounding box plus the triangle edges
// of merged temporary geometry, so LOD switching, frustum culling, and
// batch merging can be inspected in the terminal.
type BatchView struct {
	camera *Camera
	fb     *Framebuffer
}

// NewBatchView creates a view drawing through the given camera into the
// given framebuffer.
func NewBatchView(camera *Camera, fb *Framebuffer) *BatchView {
	return &BatchView{camera: camera, fb: fb}
}

// DrawLine3D draws a world-space line. Lines with both endpoints outside
// the view are dropped whole; no partial clipping.
func (v *BatchView) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, _, vis1 := v.camera.WorldToScreen(p1, v.fb.Width, v.fb.Height)
	x2, y2, _, vis2 := v.camera.WorldToScreen(p2, v.fb.Width, v.fb.Height)

	if !vis1 && !vis2 {
		return
	}

	v.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// boxEdges are the 12 edges of a box given its 8 corners in
// (min/max x, min/max y, min/max z) order.
var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBox draws a wireframe axis-aligned box.
func (v *BatchView) DrawBox(box AABB, color Color) {
	corners := [8]math3d.Vec3{
		{X: box.Min.X, Y: box.Min.Y, Z: box.Min.Z},
		{X: box.Max.X, Y: box.Min.Y, Z: box.Min.Z},
		{X: box.Min.X, Y: box.Max.Y, Z: box.Min.Z},
		{X: box.Max.X, Y: box.Max.Y, Z: box.Min.Z},
		{X: box.Min.X, Y: box.Min.Y, Z: box.Max.Z},
		{X: box.Max.X, Y: box.Min.Y, Z: box.Max.Z},
		{X: box.Min.X, Y: box.Max.Y, Z: box.Max.Z},
		{X: box.Max.X, Y: box.Max.Y, Z: box.Max.Z},
	}

	for _, edge := range boxEdges {
		v.DrawLine3D(corners[edge[0]], corners[edge[1]], color)
	}
}

// DrawAxes draws the world coordinate axes at the origin.
func (v *BatchView) DrawAxes(length float64) {
	origin := math3d.Zero3()
	v.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	v.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	v.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (v *BatchView) DrawGrid(size, step float64, color Color) {
	half := size / 2
	for x := -half; x <= half; x += step {
		v.DrawLine3D(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), color)
	}
	for z := -half; z <= half; z += step {
		v.DrawLine3D(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), color)
	}
}

// DrawStorage draws every batch in the storage. Instanced batches show as
// one bounding box per instance, tinted by the batch's material base color;
// temporary merged batches are already in world space and show their
// triangle edges directly.
func (v *BatchView) DrawStorage(s *BatchStorage) {
	for i := range s.Batches {
		batch := &s.Batches[i]
		color := materialColor(batch)

		data := batch.Data.Lock()

		if data.IsTemporary() {
			v.drawTriangles(data, color)
			batch.Data.Unlock()
			continue
		}

		bmin, bmax := data.Bounds()
		batch.Data.Unlock()

		box := NewAABB(bmin, bmax)
		for _, instance := range batch.Instances {
			v.DrawBox(box.Transform(instance.WorldTransform), color)
		}
	}
}

func (v *BatchView) drawTriangles(data *surface.Data, color Color) {
	vertices := data.Vertices()
	for _, tri := range data.Triangles() {
		a := vertices[tri[0]].Position
		b := vertices[tri[1]].Position
		c := vertices[tri[2]].Position
		v.DrawLine3D(a, b, color)
		v.DrawLine3D(b, c, color)
		v.DrawLine3D(c, a, color)
	}
}

func materialColor(b *Batch) Color {
	base := b.Material.Material().BaseColor
	return RGB(
		uint8(clamp01(base[0])*255),
		uint8(clamp01(base[1])*255),
		uint8(clamp01(base[2])*255),
	)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
