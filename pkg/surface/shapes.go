package surface

import (
	"github.com/taigrr/lumen/pkg/math3d"
)

// NewCubeData builds an axis-aligned cube of the given edge length centered
// at the origin, with per-face normals and UVs under LayoutStatic.
func NewCubeData(size float64) *Data {
	h := size / 2

	// Six faces, four vertices each, CCW winding viewed from outside.
	faces := []struct {
		normal  math3d.Vec3
		corners [4]math3d.Vec3
	}{
		{math3d.V3(0, 0, 1), [4]math3d.Vec3{{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h}}},
		{math3d.V3(0, 0, -1), [4]math3d.Vec3{{X: h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: -h}, {X: -h, Y: h, Z: -h}, {X: h, Y: h, Z: -h}}},
		{math3d.V3(1, 0, 0), [4]math3d.Vec3{{X: h, Y: -h, Z: h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: h, Y: h, Z: h}}},
		{math3d.V3(-1, 0, 0), [4]math3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: h}, {X: -h, Y: h, Z: h}, {X: -h, Y: h, Z: -h}}},
		{math3d.V3(0, 1, 0), [4]math3d.Vec3{{X: -h, Y: h, Z: h}, {X: h, Y: h, Z: h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h}}},
		{math3d.V3(0, -1, 0), [4]math3d.Vec3{{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: -h, Z: h}, {X: -h, Y: -h, Z: h}}},
	}

	uvs := [4]math3d.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}

	d := NewData(LayoutStatic, 24, false)
	for _, f := range faces {
		base := uint32(len(d.vertices))
		for i, c := range f.corners {
			d.vertices = append(d.vertices, Vertex{
				Position: c,
				Normal:   f.normal,
				UV:       uvs[i],
			})
		}
		d.triangles = append(d.triangles,
			Triangle{base, base + 1, base + 2},
			Triangle{base, base + 2, base + 3},
		)
	}
	return d
}

// NewQuadData builds a unit quad on the XY plane facing +Z, under
// LayoutDecal (position, UV, color).
func NewQuadData(size float64, color [4]float64) *Data {
	h := size / 2
	d := NewData(LayoutDecal, 4, false)
	corners := [4]math3d.Vec3{{X: -h, Y: -h}, {X: h, Y: -h}, {X: h, Y: h}, {X: -h, Y: h}}
	uvs := [4]math3d.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	for i := range corners {
		d.vertices = append(d.vertices, Vertex{
			Position: corners[i],
			UV:       uvs[i],
			Color:    color,
		})
	}
	d.triangles = append(d.triangles, Triangle{0, 1, 2}, Triangle{0, 2, 3})
	return d
}
