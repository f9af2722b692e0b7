// Package surface provides drawable geometry buffers for Lumen.
//
// A surface is a vertex buffer plus a triangle (index) buffer. Surfaces are
// shared between scene nodes and render batches through SharedData, which
// carries a process-stable 64-bit identity key and guards mutation behind a
// scoped exclusive lock.
package surface

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Layout identifies the set of vertex attributes a buffer carries. Two
// surfaces can only be merged into one buffer if their layouts match.
type Layout uint8

const (
	// LayoutStatic carries position, normal, and UV.
	LayoutStatic Layout = iota
	// LayoutSkinned carries the static attributes plus bone indices/weights.
	LayoutSkinned
	// LayoutDecal carries position, UV, and per-vertex color. Used by the
	// raw-append path for cheap decorative geometry.
	LayoutDecal
)

func (l Layout) String() string {
	switch l {
	case LayoutStatic:
		return "static"
	case LayoutSkinned:
		return "skinned"
	case LayoutDecal:
		return "decal"
	default:
		return "unknown"
	}
}

// Key returns the stable 64-bit identity of the layout. It depends only on
// the layout value, never on addresses, so it is deterministic across runs.
func (l Layout) Key() uint64 {
	return uint64(l)
}

// Vertex holds the full attribute set. Which attributes are meaningful is
// determined by the owning buffer's Layout.
type Vertex struct {
	Position    math3d.Vec3
	Normal      math3d.Vec3
	UV          math3d.Vec2
	Color       [4]float64
	BoneIndices [4]uint8
	BoneWeights [4]float64
}

// Triangle is a triple of indices into the owning vertex buffer.
type Triangle [3]uint32

// Add returns the triangle with every index offset by n.
func (t Triangle) Add(n uint32) Triangle {
	return Triangle{t[0] + n, t[1] + n, t[2] + n}
}

// Data is a mutable vertex/triangle buffer pair. It is not safe for
// concurrent use; shared surfaces wrap it in SharedData and require the
// scoped lock for every mutation.
type Data struct {
	layout    Layout
	vertices  []Vertex
	triangles []Triangle
	temporary bool
}

// NewData creates an empty buffer pair with the given layout. capacityHint
// pre-sizes the vertex buffer (triangles get 3x the hint). temporary marks
// the buffers as valid for a single aggregation pass only.
func NewData(layout Layout, capacityHint int, temporary bool) *Data {
	return &Data{
		layout:    layout,
		vertices:  make([]Vertex, 0, capacityHint),
		triangles: make([]Triangle, 0, capacityHint*3),
		temporary: temporary,
	}
}

// Layout returns the vertex layout of the buffer.
func (d *Data) Layout() Layout {
	return d.layout
}

// IsTemporary reports whether the buffers live for one aggregation pass.
func (d *Data) IsTemporary() bool {
	return d.temporary
}

// VertexCount returns the number of vertices.
func (d *Data) VertexCount() int {
	return len(d.vertices)
}

// TriangleCount returns the number of triangles.
func (d *Data) TriangleCount() int {
	return len(d.triangles)
}

// Vertices returns the vertex buffer. Callers must hold the shared lock for
// the duration of any use when the data is shared.
func (d *Data) Vertices() []Vertex {
	return d.vertices
}

// Triangles returns the triangle buffer.
func (d *Data) Triangles() []Triangle {
	return d.triangles
}

// AppendVertices appends vertices declared under the given layout. The
// layout must match the buffer's layout; a mismatch means the caller grouped
// the vertices under the wrong batch key, which is a contract violation,
// so it panics rather than returning an error.
func (d *Data) AppendVertices(layout Layout, vertices []Vertex) {
	if layout != d.layout {
		panic(fmt.Sprintf("surface: vertex layout mismatch: buffer is %s, append is %s", d.layout, layout))
	}
	d.vertices = append(d.vertices, vertices...)
}

// AppendTriangles appends triangles with every index offset by base.
// base is normally the vertex count recorded before the matching
// AppendVertices call, so repeated appends accumulate into one contiguous,
// correctly indexed mesh.
func (d *Data) AppendTriangles(triangles []Triangle, base uint32) {
	for _, t := range triangles {
		d.triangles = append(d.triangles, t.Add(base))
	}
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (d *Data) Bounds() (bmin, bmax math3d.Vec3) {
	if len(d.vertices) == 0 {
		return math3d.Zero3(), math3d.Zero3()
	}
	bmin = d.vertices[0].Position
	bmax = d.vertices[0].Position
	for _, v := range d.vertices[1:] {
		bmin = bmin.Min(v.Position)
		bmax = bmax.Max(v.Position)
	}
	return bmin, bmax
}

// dataKeys issues surface identity keys. Keys start at 1 so that 0 can
// never collide with a live surface.
var dataKeys atomic.Uint64

// SharedData wraps a Data for shared ownership between scene nodes, render
// batches, and the geometry cache. Every SharedData has a distinct,
// process-stable 64-bit key that downstream caches use to recognize the
// same geometry across frames.
type SharedData struct {
	key  uint64
	mu   sync.Mutex
	data *Data
}

// NewShared wraps data in a SharedData with a fresh identity key.
func NewShared(data *Data) *SharedData {
	return &SharedData{
		key:  dataKeys.Add(1),
		data: data,
	}
}

// Key returns the stable identity of the surface.
func (s *SharedData) Key() uint64 {
	return s.key
}

// Lock acquires exclusive access to the underlying buffers and returns
// them. Callers must pair every Lock with an Unlock (defer is the usual
// pattern) so the lock is released on every exit path, including panics
// from contract violations during append.
func (s *SharedData) Lock() *Data {
	s.mu.Lock()
	return s.data
}

// Unlock releases exclusive access acquired by Lock.
func (s *SharedData) Unlock() {
	s.mu.Unlock()
}
